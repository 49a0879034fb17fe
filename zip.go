// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/zip"
	"compress/bzip2"
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// fileExtensionZip is the file extension for zip files.
const fileExtensionZip = "zip"

const (
	// zipMethodBzip2 is the compression method id of bzip2 compressed zip entries.
	zipMethodBzip2 uint16 = 12

	// zipMethodXz is the compression method id of xz compressed zip entries.
	zipMethodXz uint16 = 95

	// maxZipLinknameSize is the maximum size of a symlink target stored in a zip archive.
	maxZipLinknameSize = 4096
)

// magicBytesZip are the magic bytes for zip archives.
var magicBytesZip = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
}

// IsZip checks if the header matches the magic bytes for zip archives.
func IsZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZip)
}

// ExtractZip extracts the zip archive at path src to the directory dst. A missing
// source is reported with [ErrSourceNotFound] before dst is touched.
func ExtractZip(ctx context.Context, src string, dst string, cfg *Config) (*Result, error) {
	f, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return UnpackZip(ctx, NewTargetDisk(), dst, f, cfg)
}

// UnpackZip extracts the zip archive provided by src to dst, using t to write the
// contents. If src is not seekable, it is cached in memory or on disk first.
func UnpackZip(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config) (*Result, error) {
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionZip, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	// zip needs random access
	sra, cleanup, err := readerToReaderAtSeeker(cfg, src)
	if err != nil {
		return r, handleError(cfg, r, StageOpen, "", "cannot convert reader to readerAt and seeker", err)
	}
	defer cleanup()

	return r, finish(r, processZip(ctx, t, sra, dst, cfg, r))
}

// processZip reads a zip file from src and extracts the contents to dst. If the
// input size exceeds the maximum input size, the function returns an error.
func processZip(ctx context.Context, t Target, src seekerReaderAt, dst string, cfg *Config, r *Result) error {
	cfg.Logger().Info("extracting zip")

	// get size of input and check if it exceeds maximum input size
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return handleError(cfg, r, StageOpen, "", "cannot seek to end of reader", err)
	}
	r.InputSize = size
	if cfg.MaxInputSize() != -1 && size > cfg.MaxInputSize() {
		return handleError(cfg, r, StageOpen, "", "cannot unpack zip", ErrMaxInputSizeExceeded)
	}

	// insecure names are rejected per entry by the security check
	reader, err := zip.NewReader(src, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return handleError(cfg, r, StageOpen, "", "cannot create zip reader", err)
	}
	registerZipDecompressors(reader)

	return extract(ctx, t, dst, &zipWalker{zr: reader}, cfg, r)
}

// registerZipDecompressors adds the compression methods beyond store and deflate, and
// replaces the deflate implementation with a faster one.
func registerZipDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	zr.RegisterDecompressor(zipMethodBzip2, func(r io.Reader) io.ReadCloser {
		return io.NopCloser(bzip2.NewReader(r))
	})
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	zr.RegisterDecompressor(zipMethodXz, func(r io.Reader) io.ReadCloser {
		xr, err := xz.NewReader(r)
		if err != nil {
			return &errReadCloser{err: err}
		}
		return io.NopCloser(xr)
	})
}

// errReadCloser fails every read with err.
type errReadCloser struct {
	err error
}

func (e *errReadCloser) Read([]byte) (int, error) { return 0, e.err }

func (e *errReadCloser) Close() error { return nil }

// zipWalker is a walker for zip files
type zipWalker struct {
	zr *zip.Reader
	fp int
}

// Type returns the file extension for zip files
func (z *zipWalker) Type() string {
	return fileExtensionZip
}

// Next returns the next entry in the zip archive
func (z *zipWalker) Next() (archiveEntry, error) {
	if z.fp >= len(z.zr.File) {
		return nil, io.EOF
	}
	defer func() { z.fp++ }()
	return &zipEntry{z.zr.File[z.fp]}, nil
}

// zipEntry is an entry in a zip archive
type zipEntry struct {
	zf *zip.File
}

func (z *zipEntry) Name() string {
	return z.zf.Name
}

func (z *zipEntry) Size() int64 {
	return int64(z.zf.UncompressedSize64)
}

func (z *zipEntry) Mode() fs.FileMode {
	return z.zf.Mode()
}

// Linkname returns the target of a symlink, which zip stores as file content.
func (z *zipEntry) Linkname() string {
	rc, err := z.zf.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxZipLinknameSize))
	if err != nil {
		return ""
	}
	return string(data)
}

func (z *zipEntry) IsRegular() bool {
	return z.zf.Mode().Type() == 0
}

func (z *zipEntry) IsDir() bool {
	return z.zf.Mode().Type() == fs.ModeDir
}

func (z *zipEntry) IsSymlink() bool {
	return z.zf.Mode().Type() == fs.ModeSymlink
}

// Open returns a reader for the decompressed content of the entry
func (z *zipEntry) Open() (io.ReadCloser, error) {
	rc, err := z.zf.Open()
	if err != nil {
		return nil, errors.Wrap(err, "cannot open zip entry")
	}
	return rc, nil
}

func (z *zipEntry) Type() fs.FileMode {
	return z.zf.Mode().Type()
}

func (z *zipEntry) ModTime() time.Time {
	return z.zf.Modified
}
