// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"

	"github.com/pkg/errors"
)

// ErrMaxInputSizeExceeded indicates that the input is larger than the configured maximum.
var ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

// limitErrorReader is a reader that fails with [ErrMaxInputSizeExceeded] as soon as
// the underlying reader delivers more than limit bytes. A limit of -1 disables the check.
type limitErrorReader struct {
	r     io.Reader
	limit int64
	read  int64
}

// newLimitErrorReader returns a limitErrorReader that reads from r.
func newLimitErrorReader(r io.Reader, limit int64) *limitErrorReader {
	return &limitErrorReader{r: r, limit: limit}
}

// Read reads from the underlying reader. Once the limit is reached, it reports
// io.EOF if the underlying reader is exhausted as well and [ErrMaxInputSizeExceeded]
// otherwise.
func (l *limitErrorReader) Read(p []byte) (int, error) {
	if l.limit < 0 {
		n, err := l.r.Read(p)
		l.read += int64(n)
		return n, err
	}

	remaining := l.limit - l.read
	if remaining <= 0 {
		// probe a single byte to distinguish EOF from an oversized input
		var probe [1]byte
		n, err := l.r.Read(probe[:])
		if n > 0 {
			return 0, ErrMaxInputSizeExceeded
		}
		return 0, err
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	return n, err
}

// ReadBytes returns how many bytes have been read from the underlying reader.
func (l *limitErrorReader) ReadBytes() int64 {
	return l.read
}
