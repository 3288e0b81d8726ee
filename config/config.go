// Package config loads the optional project file that sets code generation
// defaults for every source file in a directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"

	"github.com/pontaoski/icd/llvm"
)

// FileNames are searched for, in order, by Find.
var FileNames = []string{"icd.yaml", "icd.yml", "icd.toml"}

type Config struct {
	Triple     string `yaml:"triple" toml:"triple"`
	DataLayout string `yaml:"datalayout" toml:"datalayout"`
	Suffix     string `yaml:"suffix" toml:"suffix"`
	OutputDir  string `yaml:"output_dir,omitempty" toml:"output_dir,omitempty"`
	Verify     bool   `yaml:"verify" toml:"verify"`
	Jobs       int    `yaml:"jobs,omitempty" toml:"jobs,omitempty"`
	// Requires is a version constraint the compiler must satisfy, such as
	// ">= 0.3".
	Requires string `yaml:"requires,omitempty" toml:"requires,omitempty"`
}

func Default() Config {
	return Config{
		Triple:     llvm.DefaultTriple,
		DataLayout: llvm.DefaultDataLayout,
		Suffix:     ".ll",
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path, choosing the format by extension. Unset fields keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	c := Default()
	if isTOML(path) {
		err = toml.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return c, nil
}

// Find returns the first project file present in dir, or "" if none is.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CheckVersion fails when version does not satisfy Requires.
func (c Config) CheckVersion(version string) error {
	if c.Requires == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(c.Requires)
	if err != nil {
		return fmt.Errorf("invalid requires %q: %w", c.Requires, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid compiler version %q: %w", version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("compiler version %s does not satisfy %s", v, c.Requires)
	}
	return nil
}
