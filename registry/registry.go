// Package registry loads the package/test registry that tells dgtest which
// executables exist, which of them are tests and which have reference logs.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultTestPattern selects runnables whose name contains "test".
const DefaultTestPattern = "*test*"

// ErrNoRegistry is returned when no registry file was configured or found.
var ErrNoRegistry = errors.New("no test registry available")

// Package describes one package of the installation.
type Package struct {
	Name    string `yaml:"name" toml:"name" json:"name"`
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	// Directory containing the installed runnables
	BinDir string `yaml:"bin_dir" toml:"bin_dir" json:"bin_dir"`
	// Directory containing <name>.log reference logs
	RefLogDir string `yaml:"reflog_dir" toml:"reflog_dir" json:"reflog_dir"`
	// Names of runnables that have a reference log
	RefLogs []string `yaml:"reflogs" toml:"reflogs" json:"reflogs"`
	// Names of all runnables of the package
	Runnables []string `yaml:"runnables" toml:"runnables" json:"runnables"`
	// Runnables declared to accept the coverage wrapper
	Instrumentable []string `yaml:"instrumentable" toml:"instrumentable" json:"instrumentable"`
	// Runnables declared to never accept the coverage wrapper
	NotInstrumentable []string `yaml:"not_instrumentable" toml:"not_instrumentable" json:"not_instrumentable"`
}

// Registry is the deserialized registry file.
type Registry struct {
	// Glob deciding which runnables are tests
	TestPattern string `yaml:"test_pattern" toml:"test_pattern" json:"test_pattern"`
	// Extra environment for the test processes
	Env      map[string]string `yaml:"env" toml:"env" json:"env"`
	Packages []Package         `yaml:"packages" toml:"packages" json:"packages"`
}

// Load reads a registry file. The format is picked from the file extension:
// .yaml/.yml, .toml or .json.
func Load(path string) (*Registry, error) {
	if path == "" {
		return nil, ErrNoRegistry
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoRegistry, path)
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg Registry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &reg)
	case ".toml":
		err = toml.Unmarshal(content, &reg)
	case ".json":
		err = json.Unmarshal(content, &reg)
	default:
		return nil, fmt.Errorf("unsupported registry format %q (use .yaml, .toml or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}

	if reg.TestPattern == "" {
		reg.TestPattern = DefaultTestPattern
	}

	// Relative directories are resolved against the registry location
	base := filepath.Dir(path)
	for i := range reg.Packages {
		pkg := &reg.Packages[i]
		if pkg.Name == "" {
			return nil, fmt.Errorf("registry %s: package #%d has no name", path, i+1)
		}
		pkg.BinDir = resolve(base, pkg.BinDir)
		pkg.RefLogDir = resolve(base, pkg.RefLogDir)
	}

	return &reg, nil
}

func resolve(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// TestPredicate returns the predicate distinguishing tests from ordinary
// runnables.
func (r *Registry) TestPredicate() (func(name string) bool, error) {
	pattern := r.TestPattern
	if pattern == "" {
		pattern = DefaultTestPattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid test_pattern %q: %w", pattern, err)
	}
	return g.Match, nil
}
