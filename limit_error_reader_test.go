// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadBytes(t *testing.T) {
	tests := []struct {
		name       string
		limit      int64
		input      string
		bufferSize int
		expectN    int64
	}{
		{
			name:       "Under limit",
			limit:      10,
			input:      "12345",
			bufferSize: 5,
			expectN:    5,
		},
		{
			name:       "At limit",
			limit:      5,
			input:      "12345",
			bufferSize: 5,
			expectN:    5,
		},
		{
			name:       "Over limit",
			limit:      4,
			input:      "12345",
			bufferSize: 5,
			expectN:    4,
		},
		{
			name:       "Under limit with buffer",
			limit:      10,
			input:      "12345",
			bufferSize: 2,
			expectN:    2,
		},
		{
			name:       "Unlimited",
			limit:      -1,
			input:      "12345",
			bufferSize: 5,
			expectN:    5,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := newLimitErrorReader(strings.NewReader(test.input), test.limit)
			buf := make([]byte, test.bufferSize)
			n, err := l.Read(buf)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if int64(n) != test.expectN {
				t.Errorf("Read() = %v, want %v", n, test.expectN)
			}
			if l.ReadBytes() != test.expectN {
				t.Errorf("ReadBytes() = %v, want %v", l.ReadBytes(), test.expectN)
			}
		})
	}
}

// TestLimitErrorReaderReadAll checks the error that ends the reading
func TestLimitErrorReaderReadAll(t *testing.T) {
	tests := []struct {
		name      string
		limit     int64
		input     string
		expectErr error
	}{
		{
			name:  "Under limit",
			limit: 10,
			input: "12345",
		},
		{
			name:  "At limit",
			limit: 5,
			input: "12345",
		},
		{
			name:      "Over limit",
			limit:     4,
			input:     "12345",
			expectErr: ErrMaxInputSizeExceeded,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l := newLimitErrorReader(strings.NewReader(test.input), test.limit)
			_, err := io.ReadAll(l)
			if !errors.Is(err, test.expectErr) {
				t.Errorf("ReadAll() error = %v, want %v", err, test.expectErr)
			}
		})
	}
}
