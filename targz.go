// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
)

const (
	// fileExtensionTarGz is the type reported for gzip compressed tar archives.
	fileExtensionTarGz = "tar.gz"

	// intermediatePattern is the name pattern of the intermediate tar file. The
	// random part is chosen by os.CreateTemp, so no existing file is reused.
	intermediatePattern = ".unpack-*.tar"
)

// ExtractTarGz extracts the gzip compressed tar archive at path src to the directory
// dst. If dst is empty, the directory that contains src is used.
//
// The archive is first decompressed into a newly created intermediate tar file inside
// dst, which is then extracted. The intermediate file is removed afterwards, also if
// the extraction failed. Files that already exist in dst are never used as
// intermediate. A missing source is reported with [ErrSourceNotFound] before dst is
// touched.
func ExtractTarGz(ctx context.Context, src string, dst string, cfg *Config) (*Result, error) {
	f, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg = configOrDefault(cfg)
	if len(dst) == 0 {
		dst = filepath.Dir(src)
	}

	// prepare result collection and emit
	r := newResult(fileExtensionTarGz, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	return r, finish(r, processTarGz(ctx, NewTargetDisk(), dst, f, cfg, r))
}

// processTarGz decompresses src into an intermediate file in dst and extracts it.
// Only the tar extraction is counted in r.
func processTarGz(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config, r *Result) error {
	cfg.Logger().Info("extracting tar.gz", "destination", dst)

	// limit input size
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(r, limitedReader)

	if err := ensureDestination(t, dst, cfg); err != nil {
		return handleError(cfg, r, StageOpen, "", "cannot prepare destination", err)
	}

	gz, err := newGZipReader(ctx, limitedReader, cfg, r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tmp, err := os.CreateTemp(dst, intermediatePattern)
	if err != nil {
		return handleError(cfg, r, StageOpen, "", "cannot create intermediate tar", err)
	}
	defer removeIntermediate(tmp, cfg, r)

	n, err := copyChunked(limitWriter(tmp, cfg.MaxExtractionSize()), gz, cfg.BufferSize())
	if err != nil {
		return handleError(cfg, r, StageDecompress, "", "cannot decompress into intermediate tar", err)
	}
	cfg.Logger().Debug("decompressed intermediate tar", "path", tmp.Name(), "size", n)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return handleError(cfg, r, StageOpen, "", "cannot rewind intermediate tar", err)
	}

	return processTar(ctx, t, tmp, dst, cfg, r)
}

// removeIntermediate closes and removes the intermediate file. A failure is recorded
// in r with stage cleanup.
func removeIntermediate(f *os.File, cfg *Config, r *Result) {
	f.Close()
	if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
		handleError(cfg, r, StageCleanup, f.Name(), "cannot remove intermediate tar", err)
	}
}

// UnpackTarGz extracts the gzip compressed tar archive provided by src to dst, using
// t to write the contents. The decompressed stream is extracted directly, without an
// intermediate file.
func UnpackTarGz(ctx context.Context, t Target, dst string, src io.Reader, cfg *Config) (*Result, error) {
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionTarGz, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	defer captureInputSize(r, limitedReader)

	gz, err := pgzip.NewReader(limitedReader)
	if err != nil {
		return r, handleError(cfg, r, StageDecompress, "", "cannot start decompression", err)
	}
	defer gz.Close()

	return r, finish(r, processTar(ctx, t, gz, dst, cfg, r))
}
