// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"context"
	"flag"

	"github.com/grailbio/hailexpr/types"
)

func (c *Cmd) mustParseType(text string) *types.T {
	t, err := types.Parse(text)
	if err != nil {
		c.Fatal(err)
	}
	return t
}

func (c *Cmd) parse(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("parse", flag.ContinueOnError)
		help  = `Parse parses the provided type and prints it in canonical form.
A type that does not parse is reported along with the offset of the
offending token.`
	)
	c.Parse(flags, args, help, "parse <type>")
	if flags.NArg() != 1 {
		flags.Usage()
		return
	}
	t := c.mustParseType(flags.Arg(0))
	c.Log.Debugf("parsed %s type", t.Kind)
	c.Println(t)
}

func (c *Cmd) pretty(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("pretty", flag.ContinueOnError)
		help  = `Pretty parses the provided type and prints it across multiple
lines, one struct field per line. The output is itself a parseable type.`
	)
	indent := flags.Int("indent", 0, "starting column")
	width := flags.Int("width", 4, "number of spaces by which to indent nested structs")
	c.Parse(flags, args, help, "pretty [-indent n] [-width n] <type>")
	if flags.NArg() != 1 {
		flags.Usage()
		return
	}
	t := c.mustParseType(flags.Arg(0))
	c.Println(types.Pretty(t, *indent, *width))
}

func (c *Cmd) coerce(ctx context.Context, args ...string) {
	var (
		flags = flag.NewFlagSet("coerce", flag.ContinueOnError)
		help  = `Coerce tells whether values of the source type may be used where
values of the target type are expected, and whether doing so requires
the values to be converted. Coerce exits with status 1 if the source
type cannot be coerced to the target type.`
	)
	c.Parse(flags, args, help, "coerce <target> <source>")
	if flags.NArg() != 2 {
		flags.Usage()
		return
	}
	target := c.mustParseType(flags.Arg(0))
	source := c.mustParseType(flags.Arg(1))
	coercer := types.CoercerFor(target)
	switch {
	case !coercer.CanCoerce(source):
		c.Fatalf("%v cannot be coerced to %v", source, target)
	case coercer.RequiresConversion(source):
		c.Printf("%v coerces to %v with conversion\n", source, target)
	default:
		c.Printf("%v coerces to %v\n", source, target)
	}
}
