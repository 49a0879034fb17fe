// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// readSizeRecorder remembers the largest read request
type readSizeRecorder struct {
	r   *strings.Reader
	max int
}

func (rr *readSizeRecorder) Read(p []byte) (int, error) {
	if len(p) > rr.max {
		rr.max = len(p)
	}
	return rr.r.Read(p)
}

func TestCopyChunked(t *testing.T) {
	content := strings.Repeat("0123456789", 100)
	src := &readSizeRecorder{r: strings.NewReader(content)}
	var dst bytes.Buffer

	n, err := copyChunked(&dst, src, 16)
	if err != nil {
		t.Fatalf("copyChunked() error = %v", err)
	}
	if n != int64(len(content)) || dst.String() != content {
		t.Fatalf("copyChunked() copied %d bytes, want %d", n, len(content))
	}
	if src.max > 16 {
		t.Errorf("largest read = %d bytes, want at most 16", src.max)
	}
}

func TestCreateFileUsesBufferSize(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int64
	}{
		{name: "limit disabled", maxSize: -1},
		{name: "limit enabled", maxSize: 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := t.TempDir()
			content := strings.Repeat("x", 64*1024)
			src := &readSizeRecorder{r: strings.NewReader(content)}
			cfg := NewConfig(WithBufferSize(7), WithMaxExtractionSize(tt.maxSize))

			n, err := createFile(NewTargetDisk(), dst, "file", src, 0640, tt.maxSize, cfg)
			if err != nil {
				t.Fatalf("createFile() error = %v", err)
			}
			if n != int64(len(content)) {
				t.Errorf("createFile() = %d, want %d", n, len(content))
			}
			if src.max > 7 {
				t.Errorf("largest read = %d bytes, want at most 7", src.max)
			}
			data, err := os.ReadFile(filepath.Join(dst, "file"))
			if err != nil || string(data) != content {
				t.Errorf("file content mismatch, err = %v", err)
			}
		})
	}
}
