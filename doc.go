// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package unpack extracts zip, rar, tar and gzip compressed tar archives to a
// destination directory.
//
// Every format offers two entry points. The Extract functions take the path of an
// archive and write to the local filesystem, the Unpack functions read from an
// [io.Reader] and write through a [Target]. Entry names are checked for path traversal
// and symlinks in the path before anything is written.
//
// Configuration is done using the [Config], which is created with [NewConfig] and
// adjusted with options such as [WithMaxFiles] or [WithLogger].
//
// Each operation returns a [Result] with counters and the failures that happened during
// the extraction. A failed entry does not end the extraction by default, instead the
// returned error is a [*PartialError], which matches [ErrPartialExtraction]. Errors
// of the archive itself end the extraction and are returned as [*EntryError].
// The [Result] is also handed to the configured [ResultHook], see the telemetry and
// metrics packages.
package unpack
