// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"time"
)

// fileExtensionTar is the file extension for tar files
const fileExtensionTar = "tar"

// offsetTar is the offset where the magic bytes are located in the file
const offsetTar = 257

// magicBytesTar are the magic bytes for tar files
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

// IsTar checks if the header matches the magic bytes for tar files
func IsTar(header []byte) bool {
	return matchesMagicBytes(header, offsetTar, magicBytesTar)
}

// ExtractTar extracts the tar archive at path src to the directory dst. If dst is
// empty, the directory that contains src is used. A missing source is reported with
// [ErrSourceNotFound] before any destination is touched.
func ExtractTar(ctx context.Context, src string, dst string, cfg *Config) (*Result, error) {
	f, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if len(dst) == 0 {
		dst = filepath.Dir(src)
	}
	return UnpackTar(ctx, NewTargetDisk(), dst, f, cfg)
}

// UnpackTar extracts the tar archive provided by src to dst, using t to write the contents.
func UnpackTar(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config) (*Result, error) {
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionTar, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	// prepare reader
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(r, limitedReader)

	return r, finish(r, processTar(ctx, t, limitedReader, dst, cfg, r))
}

// processTar extracts the tar archive from src to dst
func processTar(ctx context.Context, t Target, src io.Reader, dst string, cfg *Config, r *Result) error {
	cfg.Logger().Info("extracting tar")
	return extract(ctx, t, dst, &tarWalker{tr: tar.NewReader(src)}, cfg, r)
}

// tarWalker is a walker for tar files
type tarWalker struct {
	tr *tar.Reader
}

// Type returns the file extension for tar files
func (t *tarWalker) Type() string {
	return fileExtensionTar
}

// Next returns the next entry in the tar archive
func (t *tarWalker) Next() (archiveEntry, error) {
	hdr, err := t.tr.Next()
	if err == tar.ErrInsecurePath {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return &tarEntry{hdr, t.tr}, nil
}

// tarEntry is an entry in a tar archive
type tarEntry struct {
	hdr *tar.Header
	tr  *tar.Reader
}

func (t *tarEntry) Name() string {
	return t.hdr.Name
}

func (t *tarEntry) Size() int64 {
	return t.hdr.Size
}

func (t *tarEntry) Mode() fs.FileMode {
	return t.hdr.FileInfo().Mode()
}

func (t *tarEntry) Linkname() string {
	return t.hdr.Linkname
}

// IsRegular returns true if the entry is a regular file
func (t *tarEntry) IsRegular() bool {
	return t.hdr.Typeflag == tar.TypeReg
}

func (t *tarEntry) IsDir() bool {
	return t.hdr.Typeflag == tar.TypeDir
}

func (t *tarEntry) IsSymlink() bool {
	return t.hdr.Typeflag == tar.TypeSymlink
}

// Open returns a reader for the entry. The reader is only valid until the next
// entry is requested.
func (t *tarEntry) Open() (io.ReadCloser, error) {
	return &noopReaderCloser{t.tr}, nil
}

// Type returns the tar type flag of the entry
func (t *tarEntry) Type() fs.FileMode {
	return fs.FileMode(t.hdr.Typeflag)
}

func (t *tarEntry) ModTime() time.Time {
	return t.hdr.ModTime
}
