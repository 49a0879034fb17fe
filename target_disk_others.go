// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package unpack

import (
	"runtime"
	"time"

	"github.com/pkg/errors"
)

// lchtimes is not available on this platform.
func lchtimes(_ string, _, _ time.Time) error {
	return errors.Errorf("Lchtimes is not supported on this platform (%s)", runtime.GOOS)
}

// canMaintainSymlinkTimestamps is true if symlink timestamps can be changed
// without following the link.
const canMaintainSymlinkTimestamps = false
