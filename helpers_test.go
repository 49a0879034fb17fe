// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// archiveContent describes a single entry of a generated test archive
type archiveContent struct {
	Name       string
	Content    []byte
	Linktarget string
	Mode       fs.FileMode
	Filetype   byte
	ModTime    time.Time
}

// packTar creates a tar archive with the given entries
func packTar(t *testing.T, content []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, c := range content {
		mode := c.Mode
		if mode == 0 && c.Filetype != tar.TypeXGlobalHeader {
			mode = 0640
		}
		hdr := &tar.Header{
			Name:     c.Name,
			Linkname: c.Linktarget,
			Mode:     int64(mode),
			Typeflag: c.Filetype,
			ModTime:  c.ModTime,
		}
		if c.Filetype == tar.TypeReg || c.Filetype == tar.TypeXGlobalHeader {
			hdr.Size = int64(len(c.Content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("cannot write tar header: %s", err)
		}
		if hdr.Size > 0 {
			if _, err := tw.Write(c.Content); err != nil {
				t.Fatalf("cannot write tar content: %s", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("cannot close tar writer: %s", err)
	}
	return buf.Bytes()
}

// packZip creates a zip archive with the given entries. Entries with a trailing slash
// are directories, entries with a link target are symlinks.
func packZip(t *testing.T, content []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, c := range content {
		hdr := &zip.FileHeader{Name: c.Name, Method: zip.Deflate, Modified: c.ModTime}
		switch {
		case len(c.Linktarget) > 0:
			hdr.SetMode(fs.ModeSymlink | 0777)
		case len(c.Name) > 0 && c.Name[len(c.Name)-1] == '/':
			hdr.SetMode(fs.ModeDir | 0750)
		default:
			hdr.SetMode(0640)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("cannot create zip entry: %s", err)
		}
		data := c.Content
		if len(c.Linktarget) > 0 {
			data = []byte(c.Linktarget)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("cannot write zip content: %s", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("cannot close zip writer: %s", err)
	}
	return buf.Bytes()
}

// compressGZip compresses data with gzip
func compressGZip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		t.Fatalf("cannot write gzip content: %s", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("cannot close gzip writer: %s", err)
	}
	return buf.Bytes()
}

// writeFile writes data to name in dir and returns the path
func writeFile(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatalf("cannot write test file: %s", err)
	}
	return path
}

// readFile returns the content of path or fails the test
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read %s: %s", path, err)
	}
	return string(data)
}
