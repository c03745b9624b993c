// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hailexpr/types"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type exit int

// run runs the hailexpr command with the provided arguments,
// returning its output and exit code.
func run(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errout bytes.Buffer
	cmd := &Cmd{
		Stdout:   &out,
		Stderr:   &errout,
		ExitFunc: func(code int) { panic(exit(code)) },
		Version:  "test",
	}
	func() {
		defer func() {
			if e := recover(); e != nil {
				c, ok := e.(exit)
				if !ok {
					panic(e)
				}
				code = int(c)
			}
		}()
		flags := cmd.Flags()
		flags.SetOutput(&errout)
		if err := flags.Parse(args); err != nil {
			t.Fatal(err)
		}
		cmd.Main()
	}()
	return out.String(), errout.String(), code
}

func TestParse(t *testing.T) {
	out, _, code := run(t, "parse", "array< int32 >")
	expect.EQ(t, code, 0)
	expect.EQ(t, out, "array<int32>\n")

	_, errout, code := run(t, "parse", "array<int32")
	expect.EQ(t, code, 1)
	expect.True(t, strings.Contains(errout, "parse"))

	_, _, code = run(t, "parse")
	expect.EQ(t, code, 2)
}

func TestPretty(t *testing.T) {
	const text = "struct{a: int32, b: array<struct{c: str}>}"
	out, _, code := run(t, "pretty", "-width", "2", text)
	expect.EQ(t, code, 0)
	expect.True(t, strings.Count(out, "\n") > 1)
	typ, err := types.Parse(out)
	assert.NoError(t, err)
	expect.EQ(t, typ.String(), text)
}

func TestCoerce(t *testing.T) {
	out, _, code := run(t, "coerce", "int32", "int32")
	expect.EQ(t, code, 0)
	expect.EQ(t, out, "int32 coerces to int32\n")

	out, _, code = run(t, "coerce", "float64", "int32")
	expect.EQ(t, code, 0)
	expect.EQ(t, out, "int32 coerces to float64 with conversion\n")

	_, errout, code := run(t, "coerce", "int32", "str")
	expect.EQ(t, code, 1)
	expect.EQ(t, errout, "str cannot be coerced to int32\n")
}

func TestConfig(t *testing.T) {
	out, _, code := run(t, "-reference_genome", "GRCh38", "-min_partitions", "8", "config")
	expect.EQ(t, code, 0)
	expect.True(t, strings.Contains(out, "reference_genome: GRCh38\n"))
	expect.True(t, strings.Contains(out, "min_partitions: 8\n"))
	expect.True(t, strings.Contains(out, "log: info\n"))

	dir, cleanup := testutil.TempDir(t, "", "config-")
	defer cleanup()
	path := filepath.Join(dir, "config.yaml")
	assert.NoError(t, ioutil.WriteFile(path, []byte("log: debug\nparallelism: 3\n"), 0644))
	out, _, code = run(t, "-config", path, "-log", "error", "config")
	expect.EQ(t, code, 0)
	expect.True(t, strings.Contains(out, "log: error\n"))
	expect.True(t, strings.Contains(out, "parallelism: 3\n"))

	assert.NoError(t, ioutil.WriteFile(path, []byte("reference: GRCh38\n"), 0644))
	_, errout, code := run(t, "-config", path, "config")
	expect.EQ(t, code, 1)
	expect.True(t, strings.Contains(errout, "unrecognized key"))

	_, _, code = run(t, "-config", filepath.Join(dir, "nonexistent.yaml"), "config")
	expect.EQ(t, code, 1)
}

func TestUnknownCommand(t *testing.T) {
	_, errout, code := run(t, "frobnicate")
	expect.EQ(t, code, 2)
	expect.True(t, strings.Contains(errout, "pretty"))
}
