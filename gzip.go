// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

const (
	// fileExtensionGZip is the file extension for gzip files.
	fileExtensionGZip = "gz"

	// fileExtensionTarGZip is the file extension for tgz files, which are tar archives compressed with gzip.
	fileExtensionTarGZip = "tgz"

	// defaultDecompressionName is the name for decompressed content, if no valid
	// name can be derived from the input.
	defaultDecompressionName = "unpack-decompressed-content"

	// defaultDecompressedSuffix is appended to the input name if it does not end
	// with a gzip file extension.
	defaultDecompressedSuffix = "decompressed"
)

// magicBytesGZip are the magic bytes for gzip compressed files.
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// IsGZip checks if the header matches the magic bytes for gzip compressed files.
func IsGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// ExtractGZip decompresses the gzip file at path src into a single file inside the
// directory dst. If dst is empty, the directory that contains src is used. The name of
// the produced file is derived from src, see [GZipOutputName], and its absolute path
// is reported in [Result.Output].
func ExtractGZip(ctx context.Context, src string, dst string, cfg *Config) (*Result, error) {
	f, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if len(dst) == 0 {
		dst = filepath.Dir(src)
	}
	return UnpackGZip(ctx, NewTargetDisk(), dst, filepath.Base(src), f, cfg)
}

// UnpackGZip decompresses the gzip stream src into a single file inside dst, using t
// to write the content. The name of the produced file is derived from name.
func UnpackGZip(ctx context.Context, t Target, dst string, name string, src io.Reader, cfg *Config) (*Result, error) {
	cfg = configOrDefault(cfg)

	// prepare result collection and emit
	r := newResult(fileExtensionGZip, dst)
	defer cfg.ResultHook()(ctx, r)
	defer captureExtractionDuration(r, now())

	return r, finish(r, decompressGZip(ctx, t, dst, GZipOutputName(name), src, cfg, r))
}

// decompressGZip decompresses src to the file outputName in dst.
func decompressGZip(ctx context.Context, t Target, dst string, outputName string, src io.Reader, cfg *Config, r *Result) error {
	cfg.Logger().Info("decompress", "type", fileExtensionGZip, "name", outputName)

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

	n, err := createFile(t, dst, outputName, gz, cfg.CustomDecompressFileMode(), cfg.MaxExtractionSize(), cfg)
	r.ExtractionSize = n
	if err != nil {
		return handleError(cfg, r, StageDecompress, outputName, "cannot create file", err)
	}
	r.ExtractedFiles++

	output, err := filepath.Abs(filepath.Join(dst, outputName))
	if err != nil {
		output = filepath.Join(dst, outputName)
	}
	r.Output = output
	cfg.Logger().Info("finished decompression", "output", output, "size", n)
	return nil
}

// newGZipReader verifies the gzip magic bytes of src and starts the decompression.
// Failures are recorded in r.
func newGZipReader(ctx context.Context, src io.Reader, cfg *Config, r *Result) (*pgzip.Reader, error) {
	hr, err := newHeaderReader(src, len(magicBytesGZip[0]))
	if err != nil {
		return nil, handleError(cfg, r, StageOpen, "", "cannot read header", err)
	}
	if !IsGZip(hr.PeekHeader()) {
		return nil, handleError(cfg, r, StageOpen, "", "cannot decompress", errors.New("input is not gzip compressed"))
	}

	gz, err := pgzip.NewReader(hr)
	if err != nil {
		return nil, handleError(cfg, r, StageDecompress, "", "cannot start decompression", err)
	}

	// check if context is canceled
	if err := ctx.Err(); err != nil {
		gz.Close()
		return nil, handleError(cfg, r, StageDecompress, "", "context error", err)
	}
	return gz, nil
}

// GZipOutputName returns the name of the file that the decompression of a gzip
// file called inputName produces:
//
//   - <name>.tgz becomes <name>.tar
//   - <name>.gz becomes <name>, only the final extension is removed
//   - every other name gets the suffix .decompressed
//
// If the resulting name is empty, not valid UTF-8 or not allowed by the operating
// system, "unpack-decompressed-content" is returned.
func GZipOutputName(inputName string) string {
	if len(inputName) == 0 {
		return defaultDecompressionName
	}

	lower := strings.ToLower(inputName)
	var newName string
	switch {
	case strings.HasSuffix(lower, "."+fileExtensionTarGZip):
		newName = inputName[:len(inputName)-len(fileExtensionTarGZip)] + fileExtensionTar
	case strings.HasSuffix(lower, "."+fileExtensionGZip):
		newName = inputName[:len(inputName)-len(fileExtensionGZip)-1]
	default:
		newName = inputName + "." + defaultDecompressedSuffix
	}

	if !utf8.ValidString(newName) {
		return defaultDecompressionName
	}

	for _, restriction := range namingRestrictions {
		if restriction.Regex.MatchString(newName) {
			return defaultDecompressionName
		}
	}
	return newName
}

// nameRestriction is a named regular expression, a matching file name is not allowed
type nameRestriction struct {
	RestrictionName string
	Regex           *regexp.Regexp
}

// namingRestrictions is a list of restrictions for filenames, depending on the operating system
var namingRestrictions []nameRestriction

// init prepares the file name restrictions for the current operating system
func init() {
	namingRestrictions = []nameRestriction{
		{"empty name", regexp.MustCompile(`^$`)},
		{"current directory", regexp.MustCompile(`^\.$`)},
		{"parent directory", regexp.MustCompile(`^\.\.$`)},
		{"maximum length 255", regexp.MustCompile(`^.{256,}$`)},
		{"limit to first 255 ascii characters", regexp.MustCompile(`[^\x00-\xFF]`)},
		{"exclude line break, feed and tab", regexp.MustCompile(`[\x0a\x0d\x09]`)},
	}

	if runtime.GOOS != "windows" {
		namingRestrictions = append(namingRestrictions,
			nameRestriction{"invalid character (unix): null byte, slash, backslash", regexp.MustCompile(`[\x00/\\]`)},
		)
		return
	}

	// https://docs.microsoft.com/en-us/windows/win32/fileio/naming-a-file
	namingRestrictions = append(namingRestrictions,
		nameRestriction{"invalid characters (windows)", regexp.MustCompile(`[\x00-\x1f<>:"/\\|?*]`)},
		nameRestriction{"reserved name", regexp.MustCompile(`^(?i)(CON|PRN|AUX|NUL)$`)},
		nameRestriction{"reserved name", regexp.MustCompile(`^(?i)(COM|LPT)[0-9]+$`)},
		nameRestriction{"reserved name", regexp.MustCompile(`^(\s|\.)+$`)},
	)
}
