// Package seed populates the database from YAML refbook fixtures. It is the
// "external management process" the serving core assumes: the only write path
// in the repository.
package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"terminology/internal/refbook"
)

// Fixture describes one refbook with its versions and items.
type Fixture struct {
	Code        string           `yaml:"code"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Versions    []VersionFixture `yaml:"versions"`
}

type VersionFixture struct {
	Version   string        `yaml:"version"`
	StartDate string        `yaml:"start_date"`
	Items     []ItemFixture `yaml:"items"`
}

type ItemFixture struct {
	Code  string `yaml:"code"`
	Value string `yaml:"value"`
}

// Start parses the fixture's start date (YYYY-MM-DD).
func (v VersionFixture) Start() (time.Time, error) {
	return time.Parse(refbook.DateLayout, v.StartDate)
}

// LoadDir reads every *.yaml / *.yml file in dir, one fixture per file.
// A missing code defaults to the file name without extension.
func LoadDir(dir string) ([]Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var fixtures []Fixture
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		var f Fixture
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if f.Code == "" {
			f.Code = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if err := validate(f); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func validate(f Fixture) error {
	if f.Name == "" {
		return fmt.Errorf("refbook %q: name is required", f.Code)
	}

	labels := make(map[string]struct{}, len(f.Versions))
	for _, v := range f.Versions {
		if v.Version == "" {
			return fmt.Errorf("refbook %q: version label is required", f.Code)
		}
		if _, dup := labels[v.Version]; dup {
			return fmt.Errorf("refbook %q: duplicate version %q", f.Code, v.Version)
		}
		labels[v.Version] = struct{}{}

		if _, err := v.Start(); err != nil {
			return fmt.Errorf("refbook %q version %q: bad start_date %q", f.Code, v.Version, v.StartDate)
		}

		codes := make(map[string]struct{}, len(v.Items))
		for _, it := range v.Items {
			if it.Code == "" {
				return fmt.Errorf("refbook %q version %q: item code is required", f.Code, v.Version)
			}
			if _, dup := codes[it.Code]; dup {
				return fmt.Errorf("refbook %q version %q: duplicate item code %q", f.Code, v.Version, it.Code)
			}
			codes[it.Code] = struct{}{}
		}
	}
	return nil
}
