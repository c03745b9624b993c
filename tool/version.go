// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"
	"runtime"
)

func (c *Cmd) version(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("version", flag.ContinueOnError)
		help  = "Version displays this binary's version."
	)
	c.Parse(flags, args, help, "version")
	if flags.NArg() != 0 {
		flags.Usage()
		return
	}
	version := c.Version
	if version == "" {
		version = "broken"
	}
	c.Printf("%s (%s)\n", version, runtime.Version())
}
