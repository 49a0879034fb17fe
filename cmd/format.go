// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2t/unpack"
	"github.com/pkg/errors"
)

// suffixes maps file name suffixes to formats, longest suffixes first
var suffixes = []struct {
	suffix string
	format string
}{
	{".tar.gz", "tar.gz"},
	{".tgz", "tar.gz"},
	{".tar", "tar"},
	{".zip", "zip"},
	{".rar", "rar"},
	{".gz", "gz"},
}

// headerLength is the number of bytes needed to detect all formats by content
const headerLength = 265

// DetectFormat returns the format of the archive at path. The file name is checked
// first, then the magic bytes of the content. Gzip compressed content is reported as
// "gz", since the compressed payload is not inspected.
func DetectFormat(path string) (string, error) {
	lower := strings.ToLower(filepath.Base(path))
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(unpack.ErrSourceNotFound, "%s", path)
		}
		return "", errors.Wrap(err, "cannot open archive")
	}
	defer f.Close()

	header := make([]byte, headerLength)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "cannot read header")
	}
	header = header[:n]

	switch {
	case unpack.IsZip(header):
		return "zip", nil
	case unpack.IsRar(header):
		return "rar", nil
	case unpack.IsGZip(header):
		return "gz", nil
	case unpack.IsTar(header):
		return "tar", nil
	}
	return "", errors.Errorf("cannot detect format of %s", path)
}

// trimArchiveExtension removes a known archive suffix from name
func trimArchiveExtension(name string) string {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(name) > len(s.suffix) {
			return name[:len(name)-len(s.suffix)]
		}
	}
	return name
}
