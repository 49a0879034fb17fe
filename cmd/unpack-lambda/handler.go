// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/h2t/unpack"
	"github.com/h2t/unpack/cmd"
	"github.com/h2t/unpack/telemetry"
)

// Event is the payload the function is invoked with.
type Event struct {
	// Format is one of zip, rar, tar, tar.gz and gz. It is detected if empty.
	Format string `json:"format"`

	// Source is the path of the archive, usually on a mounted file system
	Source string `json:"source"`

	// Destination is the output directory
	Destination string `json:"destination"`
}

// Response is returned for each invocation. A failed extraction is reported in
// Error, the invocation itself succeeds.
type Response struct {
	Result *unpack.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type handler struct {
	logger          *slog.Logger
	telemetrySource string

	// putter overrides the CloudWatch client
	putter telemetry.EventPutter
}

// Handle extracts the archive described by e.
func (h *handler) Handle(ctx context.Context, e Event) (Response, error) {
	opts := []unpack.ConfigOption{
		unpack.WithLogger(h.logger),
		unpack.WithContinueOnUnsupportedFiles(true),
	}

	if len(h.telemetrySource) > 0 {
		putter := h.putter
		if putter == nil {
			client, err := telemetry.NewCloudWatchClient(ctx)
			if err != nil {
				return Response{}, err
			}
			putter = client
		}
		opts = append(opts, unpack.WithResultHook(telemetry.NewCloudWatchHook(putter, h.telemetrySource, telemetry.WithErrorLogger(h.logger))))
	}

	r, err := cmd.Extract(ctx, e.Format, e.Source, e.Destination, unpack.NewConfig(opts...))
	resp := Response{Result: r}
	if err != nil {
		h.logger.Error("extraction failed", "source", e.Source, "error", err)
		resp.Error = err.Error()
	}
	return resp, nil
}
