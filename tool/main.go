// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package tool implements the hailexpr command.
package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	golog "log"
	"os"
	"os/signal"
	"sort"

	"github.com/grailbio/hailexpr/config"
	"github.com/grailbio/hailexpr/log"
)

// Func is the type of a command function.
type Func func(*Cmd, context.Context, ...string)

// Cmd holds the configuration, flag definitions, and runtime objects
// required for tool invocations.
type Cmd struct {
	// DefaultConfigFile is the configuration file read when -config
	// is not given. It need not exist.
	DefaultConfigFile string
	Version           string

	// Commands contains the additional set of invocable commands.
	Commands map[string]Func

	// ConfigFile stores the path of the active configuration file.
	// May be overriden by the -config flag.
	ConfigFile string

	// Config is the configuration in effect, provisioned by Main
	// from the configuration file and flags.
	Config *config.Config

	// The standard output and error as defined by this command.
	Stdout, Stderr io.Writer

	// ExitFunc is called to exit the command; it defaults to
	// os.Exit.
	ExitFunc func(code int)

	configFlags map[string]*string
	logFlag     string

	flags *flag.FlagSet

	Log *log.Logger
}

var commands = map[string]Func{
	"parse":   (*Cmd).parse,
	"pretty":  (*Cmd).pretty,
	"coerce":  (*Cmd).coerce,
	"config":  (*Cmd).config,
	"version": (*Cmd).version,
}

var intro = `The hailexpr command inspects hailexpr types and configuration.

The command comprises a set of subcommands; the list of supported
commands can be obtained by running

	hailexpr -help

Each subcommand can in turn be invoked with -help, displaying its
usage and help text. For example, the following displays help for the
"pretty" command.

	hailexpr pretty -help

Global flags are supplied after the "hailexpr" command; command flags
after that command's name. For example, the following prints a type
with debug logging:

	hailexpr -log debug pretty -width 2 'struct{a: int32}'

hailexpr is configured from a single YAML configuration file, which
may be examined by

	hailexpr config

and supplied by the -config flag:

	hailexpr -config myconfig ...`

var help = `Hailexpr is a tool for working with hailexpr types.

Usage of hailexpr:
	hailexpr [flags] <command> [args]`

func (c *Cmd) usage(flags *flag.FlagSet) {
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	fmt.Fprintln(c.Stderr, help)
	fmt.Fprintln(c.Stderr, "Hailexpr commands:")
	var cmds []string
	for name := range c.commands() {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)
	for _, name := range cmds {
		fmt.Fprintln(c.Stderr, "\t"+name)
	}
	fmt.Fprintln(c.Stderr, "Global flags:")
	flags.PrintDefaults()
	c.Exit(2)
}

// Main parses command line flags and then invokes the requested
// command. The caller is expected to have parsed the flagset before
// calling Main:
//
//	cmd.Flags().Parse(os.Args[1:])
//	cmd.Main()
//
// Main should only be called once.
func (c *Cmd) Main() {
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	flags := c.Flags()
	if flags.NArg() == 0 {
		fmt.Fprintln(c.Stderr, intro)
		c.Exit(2)
		return
	}
	cmd := flags.Arg(0)
	fn := c.commands()[cmd]
	if fn == nil {
		flags.Usage()
		return
	}
	if err := c.configure(); err != nil {
		c.Fatal(err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		cancel()
		<-sigc
		c.Exit(1)
	}()
	// The flag package stops parsing flags after the first non-flag
	// argument; thus flag.Args()[1:] contains all the flags and
	// arguments for the command in flags.Arg(0).
	fn(c, ctx, flags.Args()[1:]...)
	cancel()
	c.Exit(0)
}

// configure provisions c.Config from the configuration file, and
// then from flag overrides, and sets up the command's logger.
func (c *Cmd) configure() error {
	keys := make(config.Keys)
	if c.ConfigFile != "" {
		b, err := ioutil.ReadFile(c.ConfigFile)
		if err != nil && c.ConfigFile != c.DefaultConfigFile {
			return err
		}
		if err := config.Unmarshal(b, keys); err != nil {
			return err
		}
	}
	cfg, err := config.Make(keys)
	if err != nil {
		return err
	}
	// Flag overrides are strings; Set parses them per key.
	names := make([]string, 0, len(c.configFlags))
	for k := range c.configFlags {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if v := *c.configFlags[k]; v != "" {
			if err := cfg.Set(k, v); err != nil {
				return err
			}
		}
	}
	if c.logFlag != "" {
		if err := cfg.Set(config.Log, c.logFlag); err != nil {
			return err
		}
	}
	c.Config = cfg
	var logflags int
	if cfg.Level > log.InfoLevel {
		logflags = golog.LstdFlags
	}
	c.Log = log.New(golog.New(c.Stderr, "hailexpr: ", logflags), cfg.Level)
	c.Log.Debugf("configuration: reference genome %s, min partitions %d, parallelism %d",
		cfg.ReferenceGenome.Name, cfg.MinPartitions, cfg.Parallelism)
	return nil
}

// Fatal formats a message in the manner of fmt.Print, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatal(v ...interface{}) {
	fmt.Fprintln(c.Stderr, v...)
	c.Exit(1)
}

// Fatalf formats a message in the manner of fmt.Printf, prints it to
// stderr, and then exits the tool.
func (c *Cmd) Fatalf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stderr, format, v...)
	fmt.Fprintln(c.Stderr)
	c.Exit(1)
}

// Println formats a message in the manner of fmt.Println and prints
// it to stdout.
func (c *Cmd) Println(v ...interface{}) {
	fmt.Fprintln(c.Stdout, v...)
}

// Printf formats a message in the manner of fmt.Printf and prints it
// to stdout.
func (c *Cmd) Printf(format string, v ...interface{}) {
	fmt.Fprintf(c.Stdout, format, v...)
}

// Exit causes the command to exit with the provided status code.
func (c *Cmd) Exit(code int) {
	if c.ExitFunc != nil {
		c.ExitFunc(code)
		return
	}
	os.Exit(code)
}

// Flags initializes and returns the FlagSet used by this Cmd instance.
func (c *Cmd) Flags() *flag.FlagSet {
	if c.flags == nil {
		c.flags = flag.NewFlagSet("hailexpr", flag.ContinueOnError)
		c.flags.Usage = func() { c.usage(c.flags) }
		c.flags.StringVar(&c.ConfigFile, "config", c.DefaultConfigFile, "path to configuration file; otherwise use default (builtin) config")
		c.flags.StringVar(&c.logFlag, "log", "", "set the log level: off, error, info, debug")
		// Add flags to override configuration. The log level has
		// its own flag.
		c.configFlags = make(map[string]*string)
		for _, key := range config.AllKeys {
			if key == config.Log {
				continue
			}
			c.configFlags[key] = c.flags.String(key, "",
				fmt.Sprintf("override %s from config; see hailexpr config -help", key))
		}
	}
	return c.flags
}

func (c *Cmd) commands() map[string]Func {
	m := make(map[string]Func)
	for name, f := range commands {
		m[name] = f
	}
	for name, f := range c.Commands {
		m[name] = f
	}
	return m
}
