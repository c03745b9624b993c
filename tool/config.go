// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/hailexpr/config"
)

var keyHelp = map[string]string{
	config.ReferenceGenome: "the default reference genome of imports and locus literals (GRCh37, GRCh38)",
	config.Log:             "the log level (off, error, info, debug)",
	config.MinPartitions:   "the default partition hint passed to imports; 0 lets the engine decide",
	config.Parallelism:     "the number of partitions aggregated concurrently",
}

func (c *Cmd) config(ctx context.Context, args ...string) {
	var (
		flags  = flag.NewFlagSet("config", flag.ContinueOnError)
		header = `Config writes the current hailexpr configuration to standard
output.

hailexpr's configuration is a YAML file with the following toplevel
keys:

`
		footer = `The configuration may be modified and supplied back:

	$ hailexpr config > myconfig
	<edit myconfig>
	$ hailexpr -config myconfig ...`
	)
	b := new(bytes.Buffer)
	b.WriteString(header)
	for _, key := range config.AllKeys {
		fmt.Fprintf(b, "%s: %s\n", key, keyHelp[key])
	}
	b.WriteString("\n")
	b.WriteString(footer)

	c.Parse(flags, args, b.String(), "config")
	if flags.NArg() != 0 {
		flags.Usage()
		return
	}
	data, err := config.Marshal(c.Config)
	if err != nil {
		c.Fatal(err)
	}
	c.Stdout.Write(data)
}
