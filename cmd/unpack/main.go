// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/h2t/unpack/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the unpack cli
func main() {
	cmd.Run(version, commit, date)
}
