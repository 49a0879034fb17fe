// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"encoding/json"
	"time"
)

// Result holds the outcome of an extraction. It is returned by every operation,
// also when the operation failed, and handed to the configured [ResultHook].
type Result struct {
	// Destination is the directory the archive has been extracted to
	Destination string `json:"destination"`

	// ExtractedDirs is the number of extracted directories
	ExtractedDirs int64 `json:"extracted_dirs"`

	// ExtractedFiles is the number of extracted files
	ExtractedFiles int64 `json:"extracted_files"`

	// ExtractedSymlinks is the number of extracted symlinks
	ExtractedSymlinks int64 `json:"extracted_symlinks"`

	// ExtractedType is the type of the archive
	ExtractedType string `json:"extracted_type"`

	// ExtractionDuration is the time it took to extract the archive
	ExtractionDuration time.Duration `json:"extraction_duration"`

	// ExtractionSize is the size of the extracted files
	ExtractionSize int64 `json:"extraction_size"`

	// Failures lists everything that went wrong, in order of occurrence
	Failures []*EntryError `json:"-"`

	// InputSize is the size of the input
	InputSize int64 `json:"input_size"`

	// Output is the absolute path of the file produced by a gzip decompression
	Output string `json:"output,omitempty"`

	// PatternMismatches is the number of skipped files
	PatternMismatches int64 `json:"pattern_mismatches"`

	// UnsupportedFiles is the number of skipped unsupported files
	UnsupportedFiles int64 `json:"unsupported_files"`
}

// ResultHook is a function type that performs operations on a [Result]
// after an extraction has finished, which can be used to submit the result
// to a telemetry service, for example.
type ResultHook func(context.Context, *Result)

func newResult(archiveType string, dst string) *Result {
	return &Result{ExtractedType: archiveType, Destination: dst}
}

// Err returns nil if no failure has been recorded, otherwise a [*PartialError]
// listing all failures.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &PartialError{Failures: r.Failures}
}

// Partial returns true if the extraction finished with failed entries.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// FailedEntries returns the names of all entries that could not be extracted.
func (r *Result) FailedEntries() []string {
	var names []string
	for _, f := range r.Failures {
		if f.Stage == StageEntry {
			names = append(names, f.Entry)
		}
	}
	return names
}

// addFailure records a failure and returns it.
func (r *Result) addFailure(stage Stage, entry string, err error) *EntryError {
	ee := &EntryError{Stage: stage, Entry: entry, Err: err}
	r.Failures = append(r.Failures, ee)
	return ee
}

// String returns a string representation of [Result].
func (r Result) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (r Result) MarshalJSON() ([]byte, error) {
	failures := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		failures = append(failures, f.Error())
	}

	type Alias Result
	return json.Marshal(&struct {
		Failures []string `json:"failures"`
		*Alias
	}{
		Failures: failures,
		Alias:    (*Alias)(&r),
	})
}

// finish returns err if the extraction was aborted, otherwise the
// partial extraction error of r (if any).
func finish(r *Result, err error) error {
	if err != nil {
		return err
	}
	return r.Err()
}
