// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
)

// main starts the unpack lambda function
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	h := &handler{
		logger:          logger,
		telemetrySource: os.Getenv("UNPACK_TELEMETRY_SOURCE"),
	}
	lambda.Start(h.Handle)
}
