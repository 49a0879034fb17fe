// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"
)

// limitErrorWriter forwards writes to w until limit bytes have been written.
// The write that crosses the limit is truncated and reports
// [ErrMaxExtractionSizeExceeded].
type limitErrorWriter struct {
	w       io.Writer
	limit   int64
	written int64
}

// Write implements io.Writer.
func (l *limitErrorWriter) Write(p []byte) (int, error) {
	remaining := l.limit - l.written
	if remaining <= 0 {
		return 0, ErrMaxExtractionSizeExceeded
	}

	truncated := int64(len(p)) > remaining
	if truncated {
		p = p[:remaining]
	}
	n, err := l.w.Write(p)
	l.written += int64(n)
	if err == nil && truncated {
		err = ErrMaxExtractionSizeExceeded
	}
	return n, err
}

// limitWriter wraps w so that no more than maxSize bytes are accepted.
// A negative maxSize disables the limit.
func limitWriter(w io.Writer, maxSize int64) io.Writer {
	if maxSize < 0 {
		return w
	}
	return &limitErrorWriter{w: w, limit: maxSize}
}
