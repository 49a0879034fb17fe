// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import "io"

// chunkReader reads from r in chunks of at most size bytes. It implements
// io.Reader only, io.Copy never sees a WriteTo method of r.
type chunkReader struct {
	r    io.Reader
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.size > 0 && len(p) > c.size {
		p = p[:c.size]
	}
	return c.r.Read(p)
}

// newChunkReader returns a reader that reads from r in chunks of at most size bytes.
func newChunkReader(r io.Reader, size int) io.Reader {
	return &chunkReader{r: r, size: size}
}

// writerOnly hides optional interfaces like io.ReaderFrom of the wrapped writer.
type writerOnly struct {
	io.Writer
}

// copyChunked copies src to dst through a buffer of size bytes.
func copyChunked(dst io.Writer, src io.Reader, size int) (int64, error) {
	if size <= 0 {
		size = defaultBufferSize
	}
	return io.CopyBuffer(writerOnly{dst}, newChunkReader(src, size), make([]byte, size))
}
