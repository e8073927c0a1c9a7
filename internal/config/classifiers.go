package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/internship-recommender/internal/normalize"
	"github.com/fairyhunter13/internship-recommender/internal/skills"
)

// Classifiers holds the keyword tables used by the normalizer and skill
// extractor. Any list left out of the YAML keeps its built-in default.
type Classifiers struct {
	Normalize normalize.Tables    `yaml:"normalize"`
	Skills    skills.Dictionaries `yaml:"skills"`
}

// DefaultClassifiers returns the built-in tables.
func DefaultClassifiers() Classifiers {
	return Classifiers{Normalize: normalize.DefaultTables(), Skills: skills.DefaultDictionaries()}
}

// LoadClassifiers reads tables from path. An empty path yields the defaults.
func LoadClassifiers(path string) (Classifiers, error) {
	if path == "" {
		return DefaultClassifiers(), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Classifiers{}, fmt.Errorf("op=config.LoadClassifiers: failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return Classifiers{}, fmt.Errorf("op=config.LoadClassifiers: config file not found: %s", absPath)
	}
	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return Classifiers{}, fmt.Errorf("op=config.LoadClassifiers: failed to read config file: %w", err)
	}
	var c Classifiers
	if err := yaml.Unmarshal(content, &c); err != nil {
		return Classifiers{}, fmt.Errorf("op=config.LoadClassifiers: failed to parse YAML: %w", err)
	}
	for i, r := range c.Normalize.Streams {
		if r.Stream == "" || len(r.Keywords) == 0 {
			return Classifiers{}, fmt.Errorf("op=config.LoadClassifiers: stream rule %d needs a name and keywords", i)
		}
	}
	return c, nil
}

// Normalizer builds a normalizer over the loaded tables.
func (c Classifiers) Normalizer() *normalize.Normalizer { return normalize.New(c.Normalize) }

// Extractor builds a skill extractor over the loaded dictionaries.
func (c Classifiers) Extractor() *skills.Extractor { return skills.New(c.Skills) }
