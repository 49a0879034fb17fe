// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// headerReader allows to inspect the first bytes of a stream before it is
// consumed, which is used to verify the archive type before unpacking.
type headerReader struct {
	*bufio.Reader
	header []byte
}

// newHeaderReader peeks up to headerSize bytes of r. Shorter streams are
// accepted, the header is then as long as the stream.
func newHeaderReader(r io.Reader, headerSize int) (*headerReader, error) {
	br := bufio.NewReaderSize(r, headerSize)
	header, err := br.Peek(headerSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrap(err, "cannot read header")
	}
	return &headerReader{Reader: br, header: append([]byte(nil), header...)}, nil
}

// PeekHeader returns the peeked header bytes.
func (p *headerReader) PeekHeader() []byte {
	return p.header
}

// matchesMagicBytes checks if data contains one of magicBytes at offset.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	for _, mb := range magicBytes {
		if offset+len(mb) > len(data) {
			continue
		}
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}
	return false
}
