// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config defines the configuration of a hailexpr session.
//
// A configuration is a set of keys (corresponding to toplevel keys
// in a YAML document), for example:
//
//	reference_genome: GRCh38
//	log: debug
//	min_partitions: 16
//	parallelism: 8
//
// Every key is optional; absent keys take the values of Default.
// Keys not defined by AllKeys are rejected, so that a misspelled
// key is not silently ignored.
package config

import (
	"fmt"
	"io/ioutil"
	golog "log"
	"os"
	"runtime"
	"strconv"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/log"
	yaml "gopkg.in/yaml.v2"
)

// The following are the set of keys understood by Config.
const (
	ReferenceGenome = "reference_genome"
	Log             = "log"
	MinPartitions   = "min_partitions"
	Parallelism     = "parallelism"
)

// AllKeys defines the order in which configuration keys are
// provisioned and marshaled.
var AllKeys = []string{
	ReferenceGenome,
	Log,
	MinPartitions,
	Parallelism,
}

// Keys is a map of string keys to configuration values.
type Keys map[string]interface{}

// Config is a provisioned session configuration.
type Config struct {
	// ReferenceGenome is the default reference genome for imports
	// and locus literals.
	ReferenceGenome *genetics.ReferenceGenome
	// Level is the session's log level.
	Level log.Level
	// MinPartitions is the default partition hint passed to imports.
	// Zero lets the engine decide.
	MinPartitions int
	// Parallelism is the number of partitions aggregated
	// concurrently.
	Parallelism int
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ReferenceGenome: genetics.Default,
		Level:           log.InfoLevel,
		Parallelism:     runtime.NumCPU(),
	}
}

// Logger returns a logger at the configured level that outputs to
// standard error.
func (c *Config) Logger() *log.Logger {
	return log.New(golog.New(os.Stderr, "", golog.LstdFlags), c.Level)
}

// Set provisions a single key from its string representation, as
// given, for example, on a command line.
func (c *Config) Set(key, value string) error {
	switch key {
	case ReferenceGenome, Log:
		return c.set(key, value)
	case MinPartitions, Parallelism:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.E("config", key, errors.Value, err)
		}
		return c.set(key, n)
	default:
		return errors.E("config", key, errors.Schema, errors.New("unrecognized key"))
	}
}

func (c *Config) set(key string, v interface{}) error {
	switch key {
	case ReferenceGenome:
		name, ok := v.(string)
		if !ok {
			return errors.E("config", key, errors.Value, fmt.Errorf("expected string, got %T", v))
		}
		rg, ok := genetics.Lookup(name)
		if !ok {
			return errors.E("config", key, errors.Value,
				fmt.Errorf("unknown reference genome %q, expected one of %v", name, genetics.Names()))
		}
		c.ReferenceGenome = rg
	case Log:
		name, ok := v.(string)
		if !ok {
			return errors.E("config", key, errors.Value, fmt.Errorf("expected string, got %T", v))
		}
		level, err := log.ParseLevel(name)
		if err != nil {
			return errors.E("config", key, errors.Value, err)
		}
		c.Level = level
	case MinPartitions, Parallelism:
		n, ok := v.(int)
		if !ok {
			return errors.E("config", key, errors.Value, fmt.Errorf("expected integer, got %T", v))
		}
		if n < 0 || key == Parallelism && n == 0 {
			return errors.E("config", key, errors.Value, fmt.Errorf("invalid value %d", n))
		}
		if key == MinPartitions {
			c.MinPartitions = n
		} else {
			c.Parallelism = n
		}
	default:
		return errors.E("config", key, errors.Schema, errors.New("unrecognized key"))
	}
	return nil
}

// Marshal populates the provided key dictionary with the keys
// present in this configuration.
func (c *Config) Marshal(keys Keys) {
	keys[ReferenceGenome] = c.ReferenceGenome.Name
	keys[Log] = c.Level.String()
	keys[MinPartitions] = c.MinPartitions
	keys[Parallelism] = c.Parallelism
}

// Unmarshal unmarshals the (YAML-configured) configuration in b into
// keys.
func Unmarshal(b []byte, keys Keys) error {
	return yaml.Unmarshal(b, keys)
}

// Marshal marshals the configuration into YAML-formatted bytes.
// The keys are emitted in the order defined by AllKeys.
func Marshal(c *Config) ([]byte, error) {
	keys := make(Keys)
	c.Marshal(keys)
	var doc yaml.MapSlice
	for _, key := range AllKeys {
		doc = append(doc, yaml.MapItem{Key: key, Value: keys[key]})
	}
	return yaml.Marshal(doc)
}

// Make provisions a configuration from keys, in the order defined
// by AllKeys, starting from Default.
func Make(keys Keys) (*Config, error) {
	for key := range keys {
		if !isKey(key) {
			return nil, errors.E("config", key, errors.Schema,
				fmt.Errorf("unrecognized key; valid keys are %v", AllKeys))
		}
	}
	c := Default()
	for _, key := range AllKeys {
		v, ok := keys[key]
		if !ok || v == nil {
			continue
		}
		if err := c.set(key, v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Parse parses and provisions a configuration from the
// YAML-formatted bytes b.
func Parse(b []byte) (*Config, error) {
	keys := make(Keys)
	if err := Unmarshal(b, keys); err != nil {
		return nil, errors.E("config", errors.Parse, err)
	}
	return Make(keys)
}

// Load reads and then parses the configuration from the
// provided filename.
func Load(filename string) (*Config, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.E("config", filename, err)
	}
	return Parse(b)
}

func isKey(key string) bool {
	for _, k := range AllKeys {
		if k == key {
			return true
		}
	}
	return false
}
