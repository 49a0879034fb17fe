// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// now is a function point that returns time.Now to the caller.
var now = time.Now

// seekerReaderAt combines the io.ReaderAt and io.Seeker interfaces
type seekerReaderAt interface {
	io.ReaderAt
	io.Seeker
}

// handleError records the failure in r and decides if the extraction should continue.
// Only failures of single entries can be skipped, everything else ends the extraction.
func handleError(c *Config, r *Result, stage Stage, entry string, msg string, err error) error {
	ee := r.addFailure(stage, entry, errors.Wrap(err, msg))

	// do not end on error
	if stage == StageEntry && c.ContinueOnError() {
		c.Logger().Error(msg, "entry", entry, "error", err)
		return nil
	}

	// end extraction on error
	c.Logger().Error(msg, "stage", stage, "error", err)
	return ee
}

// captureExtractionDuration captures the duration of the extraction
func captureExtractionDuration(r *Result, start time.Time) {
	r.ExtractionDuration = now().Sub(start)
}

// captureInputSize captures the input size of the extraction
func captureInputSize(r *Result, ler *limitErrorReader) {
	r.InputSize = ler.ReadBytes()
}

// checkPatterns checks if the given path matches any of the given patterns.
// If no patterns are given, the function returns true.
func checkPatterns(patterns []string, path string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}

	for _, pattern := range patterns {
		match, err := filepath.Match(pattern, path)
		if err != nil {
			return false, errors.Wrap(err, "failed to match pattern")
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// extract checks ctx for cancellation, while it walks over all entries of src and extracts them to dst.
func extract(ctx context.Context, t Target, dst string, src archiveWalker, cfg *Config, r *Result) error {

	// check if dst exist, or needs to be created
	if err := ensureDestination(t, dst, cfg); err != nil {
		return handleError(cfg, r, StageOpen, "", "cannot prepare destination", err)
	}

	cfg.Logger().Info("start extraction", "type", src.Type(), "destination", dst)
	var objectCounter int64

	for {
		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return handleError(cfg, r, StageRead, "", "context error", err)
		}

		// get next file
		ae, err := src.Next()

		switch {

		// if no more files are found exit loop
		case err == io.EOF:
			cfg.Logger().Info("finished extraction", "type", src.Type(), "files", r.ExtractedFiles, "failures", len(r.Failures))
			return nil

		// the container itself is broken, no way to continue
		case err != nil:
			return handleError(cfg, r, StageRead, "", "error reading archive", err)

		case ae == nil:
			continue
		}

		// check if maximum of objects is exceeded
		objectCounter++
		if err := cfg.CheckMaxFiles(objectCounter); err != nil {
			return handleError(cfg, r, StageRead, ae.Name(), "max objects check failed", err)
		}

		// check if file needs to match patterns
		match, err := checkPatterns(cfg.Patterns(), ae.Name())
		if err != nil {
			return handleError(cfg, r, StageRead, ae.Name(), "cannot check pattern", err)
		}
		if !match {
			cfg.Logger().Info("skipping file (pattern mismatch)", "name", ae.Name())
			r.PatternMismatches++
			continue
		}

		cfg.Logger().Debug("extract", "name", ae.Name())
		if err := extractEntry(t, dst, ae, cfg, r); err != nil {
			return err
		}
	}
}

// extractEntry writes a single entry to dst. It returns an error only if the
// extraction has to end.
func extractEntry(t Target, dst string, ae archiveEntry, cfg *Config, r *Result) error {
	switch {

	case ae.IsDir():
		if err := createDir(t, dst, ae.Name(), cfg.CustomCreateDirMode(), cfg); err != nil {
			return handleError(cfg, r, StageEntry, ae.Name(), "failed to create safe directory", err)
		}
		preserveModTime(t, dst, ae, cfg)
		r.ExtractedDirs++
		return nil

	case ae.IsRegular():

		// check extraction size before opening the entry
		if err := cfg.CheckExtractionSize(r.ExtractionSize + ae.Size()); err != nil {
			return handleError(cfg, r, StageRead, ae.Name(), "max extraction size exceeded", err)
		}

		fin, err := ae.Open()
		if err != nil {
			return handleError(cfg, r, StageEntry, ae.Name(), "failed to open file", err)
		}

		maxSize := int64(-1)
		if cfg.MaxExtractionSize() >= 0 {
			maxSize = cfg.MaxExtractionSize() - r.ExtractionSize
		}
		n, err := createFile(t, dst, ae.Name(), fin, ae.Mode(), maxSize, cfg)
		fin.Close()
		r.ExtractionSize += n
		if errors.Is(err, ErrMaxExtractionSizeExceeded) {
			return handleError(cfg, r, StageRead, ae.Name(), "max extraction size exceeded", err)
		}
		if err != nil {
			return handleError(cfg, r, StageEntry, ae.Name(), "failed to create file", err)
		}
		preserveModTime(t, dst, ae, cfg)
		r.ExtractedFiles++
		return nil

	case ae.IsSymlink():

		// check if symlinks are allowed
		if cfg.DenySymlinkExtraction() {
			return skipUnsupported(cfg, r, ae, "symlinks are not allowed")
		}

		if err := createSymlink(t, dst, ae.Name(), ae.Linkname(), cfg); err != nil {
			return handleError(cfg, r, StageEntry, ae.Name(), "failed to create symlink", err)
		}
		preserveModTime(t, dst, ae, cfg)
		r.ExtractedSymlinks++
		return nil

	default:

		// tar specific: check for git comment file `pax_global_header` from type `67` and skip
		if ae.Type()&tar.TypeXGlobalHeader == tar.TypeXGlobalHeader && ae.Name() == "pax_global_header" {
			return nil
		}

		return skipUnsupported(cfg, r, ae, "cannot extract file")
	}
}

// skipUnsupported counts an unsupported entry, or records it as failure if unsupported
// files must not be skipped.
func skipUnsupported(cfg *Config, r *Result, ae archiveEntry, msg string) error {
	if cfg.ContinueOnUnsupportedFiles() {
		cfg.Logger().Info("skipped unsupported file", "name", ae.Name(), "type", ae.Type())
		r.UnsupportedFiles++
		return nil
	}
	return handleError(cfg, r, StageEntry, ae.Name(), msg, unsupportedFile(ae.Name()))
}

// preserveModTime restores the modification time of an extracted entry, if configured.
// Failures are logged only.
func preserveModTime(t Target, dst string, ae archiveEntry, cfg *Config) {
	if !cfg.PreserveModTime() || ae.ModTime().IsZero() {
		return
	}
	path := filepath.Join(dst, localName(ae.Name()))
	var err error
	if ae.IsSymlink() {
		err = t.Lchtimes(path, ae.ModTime(), ae.ModTime())
	} else {
		err = t.Chtimes(path, ae.ModTime(), ae.ModTime())
	}
	if err != nil {
		cfg.Logger().Warn("cannot restore modification time", "name", ae.Name(), "error", err)
	}
}

// readerToReaderAtSeeker converts an io.Reader to an io.ReaderAt and io.Seeker. Readers that
// are not seekable are cached in memory or in a temporary file. The returned cleanup function
// removes the temporary file.
func readerToReaderAtSeeker(c *Config, r io.Reader) (seekerReaderAt, func(), error) {
	noop := func() {}

	if s, ok := r.(seekerReaderAt); ok {
		return s, noop, nil
	}

	// check if reader is a buffer
	if b, ok := r.(*bytes.Buffer); ok {
		return bytes.NewReader(b.Bytes()), noop, nil
	}

	// limit reader
	ler := newLimitErrorReader(r, c.MaxInputSize())

	if c.CacheInMemory() {
		b, err := io.ReadAll(ler)
		if err != nil {
			return nil, noop, errors.Wrap(err, "cannot read all from reader")
		}
		return bytes.NewReader(b), noop, nil
	}

	tmpFile, err := os.CreateTemp("", "unpack-*")
	if err != nil {
		return nil, noop, errors.Wrap(err, "cannot create cache file")
	}
	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}

	if _, err := io.Copy(tmpFile, ler); err != nil {
		cleanup()
		return nil, noop, errors.Wrap(err, "cannot copy reader to file")
	}

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, noop, errors.Wrap(err, "cannot seek cache file")
	}

	return tmpFile, cleanup, nil
}
