// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/pkg/errors"
)

// TargetDisk is the struct type that holds all information for interacting with the filesystem
type TargetDisk struct{}

// NewTargetDisk creates a new [TargetDisk].
func NewTargetDisk() *TargetDisk {
	return &TargetDisk{}
}

// CreateDir creates a directory at the specified path with the specified mode. If the directory already
// exists, nothing is done.
func (d *TargetDisk) CreateDir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	return nil
}

// CreateFile creates a file at the specified path with src as content. An existing file is
// truncated if overwrite is true, an existing symlink is replaced instead of followed.
// If maxSize < 0, the file size is not limited.
func (d *TargetDisk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	// Check for path validity and if file existence+overwrite
	if stat, err := os.Lstat(path); !os.IsNotExist(err) {

		// something wrong with path
		if err != nil {
			return 0, errors.Wrap(err, "invalid path")
		}

		// check for overwrite
		if !overwrite {
			return 0, errors.Errorf("file already exists: %s", path)
		}

		if stat.IsDir() {
			return 0, errors.Errorf("cannot overwrite directory: %s", path)
		}

		// never write through an existing link
		if stat.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(path); err != nil {
				return 0, errors.Wrap(err, "failed to remove existing symlink")
			}
		}
	}

	// create dst file
	dstFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return 0, errors.Wrap(err, "failed to create file")
	}
	defer dstFile.Close()

	// write data to file
	n, err := io.Copy(limitWriter(dstFile, maxSize), src)
	if err != nil {
		return n, errors.Wrap(err, "failed to write file")
	}

	return n, dstFile.Close()
}

// CreateSymlink creates a symbolic link from newname to oldname. If
// newname already exists and overwrite is false, an error should be returned.
func (d *TargetDisk) CreateSymlink(oldname string, newname string, overwrite bool) error {

	// Check for file existence and if it should be overwritten
	if _, err := os.Lstat(newname); !os.IsNotExist(err) {
		if !overwrite {
			return errors.Errorf("file already exist: %s", newname)
		}

		// delete existing link
		if err := os.Remove(newname); err != nil {
			return errors.Wrap(err, "failed to overwrite file")
		}
	}

	if err := os.Symlink(oldname, newname); err != nil {
		return errors.Wrap(err, "failed to create symlink")
	}

	return nil
}

// Lstat returns the FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func (d *TargetDisk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

// Chtimes changes the access and modification times of the named file.
func (d *TargetDisk) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// Lchtimes changes the access and modification times of the named symlink.
// On platforms that cannot change symlink timestamps this is a no-op.
func (d *TargetDisk) Lchtimes(name string, atime, mtime time.Time) error {
	if canMaintainSymlinkTimestamps {
		return lchtimes(name, atime, mtime)
	}
	return nil
}
