// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"os"

	"github.com/pkg/errors"
)

// checkSource verifies that src names an existing, regular file. It is called
// before anything else happens, so that a missing source never touches the destination.
func checkSource(src string) error {
	if len(src) == 0 {
		return errors.Wrap(ErrSourceNotFound, "empty source path")
	}
	stat, err := os.Stat(src)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrSourceNotFound, "%s", src)
	}
	if err != nil {
		return errors.Wrap(err, "cannot access source")
	}
	if stat.IsDir() {
		return errors.Errorf("source %s is a directory", src)
	}
	return nil
}

// openSource checks the precondition and opens src for reading.
func openSource(src string) (*os.File, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, &EntryError{Stage: StageOpen, Err: errors.Wrap(err, "cannot open source")}
	}
	return f, nil
}

// configOrDefault returns cfg, or the default configuration if cfg is nil.
func configOrDefault(cfg *Config) *Config {
	if cfg == nil {
		return NewConfig()
	}
	return cfg
}
