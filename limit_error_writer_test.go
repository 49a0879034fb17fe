// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLimitWriter(t *testing.T) {
	tests := []struct {
		name      string
		maxSize   int64
		input     string
		expect    string
		expectErr error
	}{
		{name: "under limit", maxSize: 10, input: "12345", expect: "12345"},
		{name: "at limit", maxSize: 5, input: "12345", expect: "12345"},
		{name: "over limit", maxSize: 3, input: "12345", expect: "123", expectErr: ErrMaxExtractionSizeExceeded},
		{name: "zero limit", maxSize: 0, input: "1", expect: "", expectErr: ErrMaxExtractionSizeExceeded},
		{name: "unlimited", maxSize: -1, input: "12345", expect: "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := io.Copy(limitWriter(&buf, tt.maxSize), strings.NewReader(tt.input))
			if !errors.Is(err, tt.expectErr) {
				t.Errorf("Copy() error = %v, want %v", err, tt.expectErr)
			}
			if buf.String() != tt.expect {
				t.Errorf("written = %q, want %q", buf.String(), tt.expect)
			}
		})
	}
}
