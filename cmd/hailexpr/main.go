// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command hailexpr parses, prints, and compares hailexpr types, and
// displays the effective session configuration.
package main

import (
	"os"

	"github.com/grailbio/hailexpr/tool"
)

var configFile = os.ExpandEnv("$HOME/.hailexpr/config.yaml")

// version is set by the linker.
var version string

func main() {
	cmd := &tool.Cmd{
		DefaultConfigFile: configFile,
		Version:           version,
	}
	if err := cmd.Flags().Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	cmd.Main()
}
