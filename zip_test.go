// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/h2t/unpack"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractZipDirectoryAndFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "test.zip", packZip(t, []archiveContent{
		{Name: "a/"},
		{Name: "a/b.txt", Content: []byte("hi")},
	}))
	dst := filepath.Join(dir, "out")

	r, err := unpack.ExtractZip(context.Background(), src, dst, nil)
	require.NoError(t, err)

	stat, err := os.Stat(filepath.Join(dst, "a"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
	assert.Equal(t, "hi", readFile(t, filepath.Join(dst, "a", "b.txt")))

	assert.Equal(t, "zip", r.ExtractedType)
	assert.Equal(t, int64(1), r.ExtractedDirs)
	assert.Equal(t, int64(1), r.ExtractedFiles)
	assert.Equal(t, int64(2), r.ExtractionSize)
	assert.False(t, r.Partial())
}

func TestExtractZipPathTraversal(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "evil.zip", packZip(t, []archiveContent{
		{Name: "../../evil.txt", Content: []byte("evil")},
		{Name: "good.txt", Content: []byte("good")},
	}))
	dst := filepath.Join(dir, "a", "b", "out")

	r, err := unpack.ExtractZip(context.Background(), src, dst, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, unpack.ErrPartialExtraction))
	assert.True(t, errors.Is(err, unpack.ErrPathTraversal))
	assert.Equal(t, []string{"../../evil.txt"}, r.FailedEntries())
	assert.Equal(t, "good", readFile(t, filepath.Join(dst, "good.txt")))

	_, statErr := os.Stat(filepath.Join(dir, "a", "evil.txt"))
	assert.True(t, os.IsNotExist(statErr), "traversal entry must not be written")
}

func TestExtractZipMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out")

	r, err := unpack.ExtractZip(context.Background(), filepath.Join(dir, "missing.zip"), dst, nil)

	assert.Nil(t, r)
	assert.True(t, errors.Is(err, unpack.ErrSourceNotFound))
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "destination must not be created")
}

func TestExtractZipZstdMethod(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "zstd.txt", Method: zstd.ZipMethodWinZip})
	require.NoError(t, err)
	_, err = w.Write([]byte("compressed with zstd"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	dir := t.TempDir()
	src := writeFile(t, dir, "zstd.zip", buf.Bytes())

	_, err = unpack.ExtractZip(context.Background(), src, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "compressed with zstd", readFile(t, filepath.Join(dir, "zstd.txt")))
}

func TestExtractZipSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	dir := t.TempDir()
	src := writeFile(t, dir, "link.zip", packZip(t, []archiveContent{
		{Name: "target.txt", Content: []byte("content")},
		{Name: "link", Linktarget: "target.txt"},
	}))
	dst := filepath.Join(dir, "out")

	r, err := unpack.ExtractZip(context.Background(), src, dst, nil)
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(dst, "link"))
	require.NoError(t, err)
	assert.Equal(t, "target.txt", link)
	assert.Equal(t, int64(1), r.ExtractedSymlinks)
}

// nonSeekReader hides the Seek method of the underlying reader
type nonSeekReader struct {
	r io.Reader
}

func (n *nonSeekReader) Read(p []byte) (int, error) {
	return n.r.Read(p)
}

func TestUnpackZip(t *testing.T) {
	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		content     []archiveContent
		opts        []unpack.ConfigOption
		ctx         context.Context
		stream      bool
		expectError bool
		expectFiles int64
	}{
		{
			name:        "normal zip",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			expectFiles: 1,
		},
		{
			name:        "normal zip, streamed and cached on disk",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			stream:      true,
			expectFiles: 1,
		},
		{
			name:        "normal zip, streamed and cached in memory",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			opts:        []unpack.ConfigOption{unpack.WithCacheInMemory(true)},
			stream:      true,
			expectFiles: 1,
		},
		{
			name:    "normal zip, but pattern mismatch",
			content: []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			opts:    []unpack.ConfigOption{unpack.WithPatterns("*foo")},
		},
		{
			name:        "normal zip, but context canceled",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			ctx:         canceledCtx,
			expectError: true,
		},
		{
			name: "zip with 3 files, but file limit",
			content: []archiveContent{
				{Name: "test1", Content: []byte("1")},
				{Name: "test2", Content: []byte("2")},
				{Name: "test3", Content: []byte("3")},
			},
			opts:        []unpack.ConfigOption{unpack.WithMaxFiles(2)},
			expectError: true,
			expectFiles: 2,
		},
		{
			name:        "zip, but extraction size exceeded",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			opts:        []unpack.ConfigOption{unpack.WithMaxExtractionSize(1)},
			expectError: true,
		},
		{
			name:        "zip, but input size exceeded",
			content:     []archiveContent{{Name: "test", Content: []byte("foobar content")}},
			opts:        []unpack.ConfigOption{unpack.WithMaxInputSize(10)},
			expectError: true,
		},
		{
			name:        "zip with symlink, but symlinks are denied",
			content:     []archiveContent{{Name: "link", Linktarget: "target"}},
			opts:        []unpack.ConfigOption{unpack.WithDenySymlinkExtraction(true)},
			expectError: true,
		},
		{
			name:    "zip with symlink, but symlinks are denied and unsupported files are skipped",
			content: []archiveContent{{Name: "link", Linktarget: "target"}},
			opts: []unpack.ConfigOption{
				unpack.WithDenySymlinkExtraction(true),
				unpack.WithContinueOnUnsupportedFiles(true),
			},
		},
		{
			name:        "zip with absolute symlink target",
			content:     []archiveContent{{Name: "link", Linktarget: "/etc/passwd"}},
			expectError: true,
		},
		{
			name:        "zip with traversal in symlink target",
			content:     []archiveContent{{Name: "link", Linktarget: "../../etc/passwd"}},
			expectError: true,
		},
		{
			name: "zip with traversal, stop on error",
			content: []archiveContent{
				{Name: "../test", Content: []byte("evil")},
				{Name: "test", Content: []byte("good")},
			},
			opts:        []unpack.ConfigOption{unpack.WithContinueOnError(false)},
			expectError: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := test.ctx
			if ctx == nil {
				ctx = context.Background()
			}

			var src io.Reader = bytes.NewReader(packZip(t, test.content))
			if test.stream {
				src = &nonSeekReader{src}
			}

			r, err := unpack.UnpackZip(ctx, unpack.NewTargetDisk(), t.TempDir(), src, unpack.NewConfig(test.opts...))
			if test.expectError != (err != nil) {
				t.Errorf("UnpackZip() error = %v, expectError %v", err, test.expectError)
			}
			if r == nil {
				t.Fatal("UnpackZip() returned no result")
			}
			if r.ExtractedFiles != test.expectFiles {
				t.Errorf("ExtractedFiles = %d, want %d", r.ExtractedFiles, test.expectFiles)
			}
		})
	}
}

func TestUnpackZipStopOnErrorIsNotPartial(t *testing.T) {
	src := bytes.NewReader(packZip(t, []archiveContent{
		{Name: "../test", Content: []byte("evil")},
		{Name: "test", Content: []byte("good")},
	}))

	r, err := unpack.UnpackZip(context.Background(), unpack.NewTargetDisk(), t.TempDir(), src, unpack.NewConfig(unpack.WithContinueOnError(false)))

	var ee *unpack.EntryError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, unpack.StageEntry, ee.Stage)
	assert.Equal(t, "../test", ee.Entry)
	assert.False(t, errors.Is(err, unpack.ErrPartialExtraction))
	assert.Equal(t, int64(0), r.ExtractedFiles)
}

func TestIsZip(t *testing.T) {
	tests := []struct {
		header []byte
		expect bool
	}{
		{[]byte{0x50, 0x4B, 0x03, 0x04, 0x00}, true},
		{[]byte{0x50, 0x4B}, false},
		{[]byte("Rar!"), false},
	}
	for _, tt := range tests {
		if got := unpack.IsZip(tt.header); got != tt.expect {
			t.Errorf("IsZip(%v) = %v, want %v", tt.header, got, tt.expect)
		}
	}
}
