// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"

	"github.com/h2t/unpack"
)

// NoopHook is a no operation result hook.
func NoopHook(ctx context.Context, r *unpack.Result) {
	// noop
}
