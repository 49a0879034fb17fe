// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

//go:generate mockgen -source=target.go -destination=internal/mocks/target.go -package=mocks

// Target specifies all functions that are needed to write the contents of an archive.
// [TargetDisk] writes to the local filesystem.
type Target interface {
	// CreateFile creates a file at the specified path with src as content. The mode parameter is the file mode that
	// should be set on the file. If the file already exists and overwrite is false, an error should be returned. If the
	// file does not exist, it should be created. The size of the file should not exceed maxSize. If the file is created
	// successfully, the number of bytes written should be returned. If an error occurs, the number of bytes written
	// should be returned along with the error. If maxSize < 0, the file size is not limited.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates at the specified path with the specified mode. If the directory already exists, nothing is done.
	CreateDir(path string, mode fs.FileMode) error

	// CreateSymlink creates a symbolic link from newname to oldname. If newname already exists and overwrite is false,
	// the function returns an error. If newname already exists and overwrite is true, the existing entry is replaced.
	CreateSymlink(oldname string, newname string, overwrite bool) error

	// Lstat see docs for os.Lstat. Main purpose is to check for symlinks in the extraction path
	// and for zip-slip attacks.
	Lstat(path string) (fs.FileInfo, error)

	// Chtimes see docs for os.Chtimes.
	Chtimes(name string, atime, mtime time.Time) error

	// Lchtimes changes the times of a symlink itself instead of its target.
	Lchtimes(name string, atime, mtime time.Time) error
}

// ensureDestination checks that dst exists and creates it, if the configuration allows it.
func ensureDestination(t Target, dst string, cfg *Config) error {
	if len(dst) == 0 {
		return nil
	}
	stat, err := t.Lstat(dst)
	if os.IsNotExist(err) {
		if !cfg.CreateDestination() {
			return errors.Errorf("destination %s does not exist", dst)
		}
		if err := t.CreateDir(dst, cfg.CustomCreateDirMode()); err != nil {
			return errors.Wrap(err, "failed to create destination directory")
		}
		cfg.Logger().Info("created destination directory", "path", dst)
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "cannot access destination")
	}
	if stat.Mode()&os.ModeSymlink != 0 {
		// the destination itself may be a link to a directory
		stat, err = os.Stat(dst)
		if err != nil {
			return errors.Wrap(err, "cannot resolve destination")
		}
	}
	if !stat.IsDir() {
		return errors.Errorf("destination %s is not a directory", dst)
	}
	return nil
}

// localName converts an archive entry name into a platform specific, relative path.
func localName(name string) string {
	return filepath.Join(strings.Split(name, "/")...)
}

// createFile is a wrapper around the CreateFile function
//
// If the name is empty, the function returns an error.
//
// If the directory for the file does not exist, it will be created with the config.CustomCreateDirMode().
//
// If the path contains path traversal or a symlink, the function returns an error.
//
// The content is read from src in chunks of config.BufferSize() bytes.
func createFile(t Target, dst string, name string, src io.Reader, mode fs.FileMode, maxSize int64, cfg *Config) (int64, error) {
	// check if a name is provided
	if len(name) == 0 {
		return 0, errors.New("cannot create file without name")
	}

	name = localName(name)
	if name == "." {
		return 0, errors.New("cannot create file without name")
	}

	// ensures that the directory exists and is safe to write to
	if err := createDir(t, dst, filepath.Dir(name), cfg.CustomCreateDirMode(), cfg); err != nil {
		return 0, errors.Wrap(err, "cannot create directory")
	}

	// ensure that if the file exist that it is not a symlink
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return 0, errors.Wrap(err, "security check path failed")
	}

	path := filepath.Join(dst, name)
	return t.CreateFile(path, newChunkReader(src, cfg.BufferSize()), mode, cfg.Overwrite(), maxSize)
}

// createDir is a wrapper around the CreateDir function
//
// If the path contains path traversal or a symlink, the function returns an error.
//
// If the path contains a symlink and config.TraverseSymlinks() returns true, a warning is logged and the
// function continues.
func createDir(t Target, dst string, name string, mode fs.FileMode, cfg *Config) error {
	name = localName(name)

	// no action needed
	if name == "." {
		return nil
	}

	// perform security check to ensure that the path is safe to write to
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return errors.Wrap(err, "security check path failed")
	}

	return t.CreateDir(filepath.Join(dst, name), mode)
}

// createSymlink is a wrapper around the CreateSymlink function
//
// It checks if the symlink extraction is allowed and if the link target is an absolute path.
// If the symlink extraction is denied, the function returns an error. If the link target is an
// absolute path or points outside of dst, the function returns an error.
func createSymlink(t Target, dst string, name string, linkTarget string, cfg *Config) error {
	// check if symlink extraction is denied
	if cfg.DenySymlinkExtraction() {
		return unsupportedFile(name)
	}

	// check if a name is provided
	if len(name) == 0 {
		return errors.New("empty name")
	}

	// Check if link target is absolute path
	if filepath.IsAbs(linkTarget) || strings.HasPrefix(linkTarget, "/") {
		return errors.Errorf("symlink with absolute path as target: %s", linkTarget)
	}

	name = localName(name)
	linkDirectory := filepath.Dir(name)

	// create target dir && check for traversal in file name
	if err := createDir(t, dst, linkDirectory, cfg.CustomCreateDirMode(), cfg); err != nil {
		return errors.Wrapf(err, "cannot create directory (%s) for symlink", linkDirectory)
	}

	// check link target for traversal
	if err := securityCheck(t, dst, filepath.Join(linkDirectory, localName(linkTarget)), cfg); err != nil {
		return errors.Wrap(err, "symlink target security check path failed")
	}

	// check the link itself
	if err := securityCheck(t, dst, name, cfg); err != nil {
		return errors.Wrap(err, "security check path failed")
	}

	return t.CreateSymlink(linkTarget, filepath.Join(dst, name), cfg.Overwrite())
}

// securityCheck checks if path, relative to dst, contains path traversal
// and if the path contains a symlink.
//
// The function returns an error if the path contains path traversal or
// if a symlink is detected.
//
// If the path contains a symlink and config.TraverseSymlinks() returns true,
// a warning is logged and the function continues.
func securityCheck(t Target, dst string, path string, config *Config) error {
	// check if dst is empty, then path should not be an absolute path
	if len(dst) == 0 && filepath.IsAbs(path) {
		return errors.Wrap(ErrPathTraversal, "absolute path")
	}

	// clean the target
	path = localName(path)

	// get relative path from base to new directory target
	rel, err := filepath.Rel(dst, filepath.Join(dst, path))
	if err != nil {
		return errors.Wrap(err, "failed to get relative path")
	}

	// check if the relative path is local
	if !filepath.IsLocal(rel) {
		return errors.Wrapf(ErrPathTraversal, "%s", path)
	}

	// check each dir in path
	elements := strings.Split(rel, string(os.PathSeparator))
	for i := range elements {
		subDirs := filepath.Join(elements[0 : i+1]...)
		checkDir := filepath.Join(dst, subDirs)
		if len(checkDir) == 0 || checkDir == "." {
			continue
		}

		symlink, err := isSymlink(t, checkDir)
		if err != nil {
			return errors.Wrap(err, "failed to check symlink")
		}

		// the last element is allowed to be a symlink, if it is going to be replaced
		if symlink && i == len(elements)-1 && config.Overwrite() {
			continue
		}

		if symlink {
			if config.TraverseSymlinks() {
				config.Logger().Warn("traverse symlink", "sub-dir", subDirs)
				continue
			}
			return errors.Errorf("symlink in path: %s", subDirs)
		}
	}

	return nil
}

// isSymlink checks if path is a symlink. A path that does not exist is not a symlink.
func isSymlink(t Target, path string) (bool, error) {
	stat, err := t.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check path")
	}
	if stat == nil {
		return false, errors.New("failed to get stats")
	}
	return stat.Mode()&os.ModeSymlink == os.ModeSymlink, nil
}
