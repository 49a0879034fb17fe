// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrSourceNotFound is returned by all path based operations if the source
	// archive does not exist. Nothing has been written to the destination in that case.
	ErrSourceNotFound = errors.New("source archive does not exist")

	// ErrMaxFilesExceeded indicates that the maximum number of files is exceeded.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrMaxExtractionSizeExceeded indicates that the maximum size is exceeded.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrPartialExtraction indicates that at least one entry of the archive could
	// not be extracted. The [Result] lists the failed entries.
	ErrPartialExtraction = errors.New("archive extracted partially")

	// ErrUnsupportedFile indicates that an entry has a type that cannot be extracted.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrPathTraversal indicates that an entry would be written outside of the destination.
	ErrPathTraversal = errors.New("path traversal detected")
)

// Stage names the step of an extraction in which a failure occurred.
type Stage string

const (
	// StageOpen is the opening of the archive container.
	StageOpen Stage = "open"

	// StageRead is reading the entry list or header of the archive container.
	StageRead Stage = "read"

	// StageDecompress is the decompression of a gzip stream.
	StageDecompress Stage = "decompress"

	// StageEntry is the extraction of a single archive entry.
	StageEntry Stage = "entry"

	// StageCleanup is the removal of intermediate files.
	StageCleanup Stage = "cleanup"
)

// EntryError describes a failure during extraction, the stage it happened in and,
// for [StageEntry], the name of the affected archive entry.
type EntryError struct {
	Stage Stage
	Entry string
	Err   error
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	if len(e.Entry) == 0 {
		return fmt.Sprintf("%s: %s", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %q: %s", e.Stage, e.Entry, e.Err)
}

// Unwrap returns the underlying error.
func (e *EntryError) Unwrap() error {
	return e.Err
}

// PartialError is returned when the extraction finished, but one or more
// entries failed. It matches [ErrPartialExtraction] with errors.Is.
type PartialError struct {
	Failures []*EntryError
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	return fmt.Sprintf("%s (%d failed): %s", ErrPartialExtraction, len(e.Failures), e.combined())
}

// Is reports whether target is [ErrPartialExtraction].
func (e *PartialError) Is(target error) bool {
	return target == ErrPartialExtraction
}

// Unwrap returns the errors of all failed entries.
func (e *PartialError) Unwrap() []error {
	return multierr.Errors(e.combined())
}

func (e *PartialError) combined() error {
	var err error
	for _, f := range e.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

// unsupportedFile returns an error that indicates that a file is not supported.
func unsupportedFile(filename string) error {
	return errors.Wrapf(ErrUnsupportedFile, "%s", filename)
}
