package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from codegraph.yml,
// overriding the indexer's built-in defaults.
type ProjectConfig struct {
	Languages   []string `yaml:"languages,omitempty"`
	ExcludeDirs []string `yaml:"excludeDirs,omitempty"`
	Verbose     bool     `yaml:"verbose,omitempty"`

	// FuzzyFloor overrides the minimum normalized fuzzy-match score used by
	// both the resolver's fuzzy tier and the Find tool (default: 0.3).
	FuzzyFloor float64 `yaml:"fuzzyFloor,omitempty"`
}

// Load attempts to read codegraph.yml or codegraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists, the same forgiving convention the teacher's config.Load uses.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"codegraph.yml", "codegraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
