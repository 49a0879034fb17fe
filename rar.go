// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/nwaples/rardecode"
)

// fileExtensionRar is the file extension for Rar files.
const fileExtensionRar = "rar"

// magicBytesRar are the magic bytes for Rar files.
var magicBytesRar = [][]byte{
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00},       // Rar 1.5
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, // Rar 5.0
}

// IsRar checks if the header matches the magic bytes for Rar files.
func IsRar(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesRar)
}

// ExtractRar extracts the rar archive at path src to the directory dst. Multi-volume
// archives are supported, the remaining volumes are expected next to src. A missing
// source is reported with [ErrSourceNotFound] before dst is touched.
func ExtractRar(ctx context.Context, src string, dst string, cfg *Config) (*Result, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionRar, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	if stat, err := os.Stat(src); err == nil {
		r.InputSize = stat.Size()
	}

	a, err := rardecode.OpenReader(src, cfg.Password())
	if err != nil {
		return r, handleError(cfg, r, StageOpen, "", "cannot create rar decoder", err)
	}
	defer a.Close()

	return r, finish(r, processRar(ctx, NewTargetDisk(), dst, &a.Reader, cfg, r))
}

// UnpackRar extracts the rar archive provided by src to dst, using t to write the contents.
func UnpackRar(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config) (*Result, error) {
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionRar, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(r, limitedReader)

	a, err := rardecode.NewReader(limitedReader, cfg.Password())
	if err != nil {
		return r, handleError(cfg, r, StageOpen, "", "cannot create rar decoder", err)
	}

	return r, finish(r, processRar(ctx, t, dst, a, cfg, r))
}

// processRar extracts a Rar archive from a to dst.
func processRar(ctx context.Context, t Target, dst string, a *rardecode.Reader, cfg *Config, r *Result) error {
	cfg.Logger().Info("extracting rar")
	return extract(ctx, t, dst, &rarWalker{a}, cfg, r)
}

// rarWalker is an archiveWalker for Rar files.
type rarWalker struct {
	r *rardecode.Reader
}

// Type returns the file extension for rar files.
func (rw *rarWalker) Type() string {
	return fileExtensionRar
}

// Next returns the next entry in the rar file.
func (rw *rarWalker) Next() (archiveEntry, error) {
	fh, err := rw.r.Next()
	if err != nil {
		return nil, err
	}
	return &rarEntry{fh, rw.r}, nil
}

// rarEntry is an archiveEntry for Rar files.
type rarEntry struct {
	f *rardecode.FileHeader
	r io.Reader
}

func (r *rarEntry) Name() string {
	return r.f.Name
}

func (r *rarEntry) Size() int64 {
	return r.f.UnPackedSize
}

func (r *rarEntry) Mode() fs.FileMode {
	return r.f.Mode()
}

// Linkname symlinks are not supported.
func (r *rarEntry) Linkname() string {
	return ""
}

func (r *rarEntry) IsRegular() bool {
	return !r.f.IsDir && r.f.Mode().IsRegular()
}

func (r *rarEntry) IsDir() bool {
	return r.f.IsDir
}

// IsSymlink always returns false, the used library does not expose link targets.
// Links are therefore reported as unsupported files.
func (r *rarEntry) IsSymlink() bool {
	return false
}

func (r *rarEntry) Type() fs.FileMode {
	return r.f.Mode().Type()
}

// Open returns a reader for the file. The reader is only valid until the next
// entry is requested.
func (r *rarEntry) Open() (io.ReadCloser, error) {
	return io.NopCloser(r.r), nil
}

func (r *rarEntry) ModTime() time.Time {
	return r.f.ModificationTime
}
