package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pontaoski/icd/llvm"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := write(t, t.TempDir(), "icd.yaml", "triple: aarch64-unknown-linux-gnu\nverify: true\njobs: 3\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Triple != "aarch64-unknown-linux-gnu" || !c.Verify || c.Jobs != 3 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.DataLayout != llvm.DefaultDataLayout || c.Suffix != ".ll" {
		t.Errorf("defaults were lost: %+v", c)
	}
}

func TestLoadTOML(t *testing.T) {
	path := write(t, t.TempDir(), "icd.toml", "suffix = \".ir\"\noutput_dir = \"build\"\nrequires = \">= 0.1\"\n")

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Suffix != ".ir" || c.OutputDir != "build" || c.Requires != ">= 0.1" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.Triple != llvm.DefaultTriple {
		t.Errorf("default triple was lost: %+v", c)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(write(t, dir, "bad.yaml", "jobs: [1, 2\n")); err == nil {
		t.Error("expected an error for malformed yaml")
	}
	if _, err := Load(write(t, dir, "bad.toml", "jobs = \n")); err == nil {
		t.Error("expected an error for malformed toml")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := Default()
	want.Verify = true
	want.Jobs = 2
	want.Requires = ">= 0.3"

	for _, name := range []string{"icd.yaml", "icd.toml"} {
		path := filepath.Join(dir, name)
		if err := want.Save(path); err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if got != want {
			t.Errorf("%s: got %+v, want %+v", name, got, want)
		}
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if got := Find(dir); got != "" {
		t.Errorf("found %s in an empty directory", got)
	}

	toml := write(t, dir, "icd.toml", "")
	if got := Find(dir); got != toml {
		t.Errorf("got %q, want %q", got, toml)
	}

	yaml := write(t, dir, "icd.yaml", "")
	if got := Find(dir); got != yaml {
		t.Errorf("yaml should win over toml, got %q", got)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		requires string
		version  string
		ok       bool
	}{
		{"", "0.1.0", true},
		{">= 0.3", "0.3.0", true},
		{">= 0.3", "0.2.9", false},
		{"~0.3", "0.3.5", true},
		{"^1.0", "0.3.0", false},
		{"not a constraint", "0.3.0", false},
		{">= 0.1", "garbage", false},
	}

	for _, test := range tests {
		err := Config{Requires: test.requires}.CheckVersion(test.version)
		if (err == nil) != test.ok {
			t.Errorf("requires %q, version %q: got %v", test.requires, test.version, err)
		}
	}
}
