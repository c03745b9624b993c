// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/grailbio/hailexpr/errors"
	"github.com/grailbio/hailexpr/genetics"
	"github.com/grailbio/hailexpr/log"
)

func TestConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
reference_genome: GRCh38
log: debug
min_partitions: 16
parallelism: 4
`))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.ReferenceGenome, genetics.GRCh38; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cfg.Level, log.DebugLevel; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cfg.MinPartitions, 16; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cfg.Parallelism, 4; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	b, err := Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "reference_genome: GRCh38\nlog: debug\nmin_partitions: 16\nparallelism: 4\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	cfg1, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, cfg1) {
		t.Error("cfg, cfg1 not equal after marshal roundtrip")
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.ReferenceGenome.Name, "GRCh37"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cfg.Level, log.InfoLevel; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if cfg.Parallelism <= 0 {
		t.Errorf("invalid default parallelism %d", cfg.Parallelism)
	}
	if cfg.Logger() == nil {
		t.Error("expected a logger at info level")
	}
}

func TestConfigErrors(t *testing.T) {
	for _, c := range []struct {
		doc  string
		kind errors.Kind
	}{
		{"reference_genome: hg19", errors.Value},
		{"log: loud", errors.Value},
		{"parallelism: 0", errors.Value},
		{"min_partitions: -1", errors.Value},
		{"min_partitions: many", errors.Value},
		{"refgenome: GRCh37", errors.Schema},
		{"log: [", errors.Parse},
	} {
		_, err := Parse([]byte(c.doc))
		if !errors.Is(c.kind, err) {
			t.Errorf("%q: got %v, want %v", c.doc, err, c.kind)
		}
	}
}

func TestSet(t *testing.T) {
	cfg := Default()
	if err := cfg.Set(Log, "error"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Set(Parallelism, "3"); err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.Level, log.ErrorLevel; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := cfg.Parallelism, 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := cfg.Set("cluster", "ec2"); !errors.Is(errors.Schema, err) {
		t.Errorf("expected schema error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "hailexpr.yaml")
	if err := ioutil.WriteFile(path, []byte("reference_genome: GRCh38\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.ReferenceGenome, genetics.GRCh38; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(errors.NotExist, err) {
		t.Errorf("expected notexist, got %v", err)
	}
}
