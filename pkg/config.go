package nextver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcomnes/nextver/pkg/conventional"
	"github.com/bcomnes/nextver/pkg/gitsemver"
)

// ConfigFileName is looked up in the project root when no config path is given.
const ConfigFileName = ".nextver.yaml"

// Config models .nextver.yaml. Paths are relative to the repository root.
type Config struct {
	ProjectRoot          string                     `yaml:"projectRoot,omitempty"`
	ProjectName          string                     `yaml:"projectName,omitempty"`
	Preset               string                     `yaml:"preset,omitempty"`
	PreMajor             bool                       `yaml:"preMajor,omitempty"`
	TagPrefix            *string                    `yaml:"tagPrefix,omitempty"`
	VersionTagPrefix     *string                    `yaml:"versionTagPrefix,omitempty"`
	SyncVersions         bool                       `yaml:"syncVersions,omitempty"`
	AllowEmptyRelease    bool                       `yaml:"allowEmptyRelease,omitempty"`
	SkipUnstable         bool                       `yaml:"skipUnstable,omitempty"`
	SkipCommitTypes      []string                   `yaml:"skipCommitTypes,omitempty"`
	Preid                string                     `yaml:"preid,omitempty"`
	ReleaseAs            string                     `yaml:"releaseAs,omitempty"`
	Dependencies         []DependencyRoot           `yaml:"dependencies,omitempty"`
	DiscoverDependencies bool                       `yaml:"discoverDependencies,omitempty"`
	Parser               conventional.ParserOptions `yaml:"parser,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		ProjectRoot: ".",
		Preset:      conventional.PresetConventionalCommits,
	}
}

// LoadConfig reads the config file at p. A missing file yields DefaultConfig.
func LoadConfig(p string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", p, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", p, err)
	}
	if err := parsed.Finalize(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", p, err)
	}
	return parsed, nil
}

// Finalize fills defaults, cleans values and validates c. Call it again after
// overriding fields.
func (c *Config) Finalize() error {
	c.applyDefaults()
	c.normalize()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ProjectRoot) == "" {
		c.ProjectRoot = "."
	}
	if strings.TrimSpace(c.Preset) == "" {
		c.Preset = conventional.PresetConventionalCommits
	}
}

func (c *Config) normalize() {
	c.ProjectRoot = cleanRepoPath(c.ProjectRoot)
	c.ProjectName = strings.TrimSpace(c.ProjectName)
	c.Preset = strings.ToLower(strings.TrimSpace(c.Preset))
	c.Preid = strings.TrimSpace(c.Preid)
	c.ReleaseAs = strings.ToLower(strings.TrimSpace(c.ReleaseAs))

	types := c.SkipCommitTypes[:0]
	for _, t := range c.SkipCommitTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	c.SkipCommitTypes = types

	for i := range c.Dependencies {
		c.Dependencies[i].Name = strings.TrimSpace(c.Dependencies[i].Name)
		c.Dependencies[i].ProjectRoot = cleanRepoPath(c.Dependencies[i].ProjectRoot)
	}
}

func (c *Config) validate() error {
	if _, err := conventional.LookupPreset(c.Preset); err != nil {
		return err
	}
	if _, err := ParseReleaseType(c.ReleaseAs); err != nil {
		return fmt.Errorf("releaseAs: %w", err)
	}
	if filepath.IsAbs(c.ProjectRoot) || strings.HasPrefix(c.ProjectRoot, "..") {
		return fmt.Errorf("projectRoot %q must be inside the repository", c.ProjectRoot)
	}
	seen := make(map[string]bool, len(c.Dependencies))
	for i, d := range c.Dependencies {
		switch {
		case d.Name == "":
			return fmt.Errorf("dependencies[%d]: name is required", i)
		case d.ProjectRoot == "" || d.ProjectRoot == ".":
			return fmt.Errorf("dependencies[%d]: path is required", i)
		case seen[d.Name]:
			return fmt.Errorf("dependencies[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
	}
	for field, pattern := range map[string]string{
		"parser.headerPattern":         c.Parser.HeaderPattern,
		"parser.breakingHeaderPattern": c.Parser.BreakingHeaderPattern,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// PresetConfig returns the configured preset with PreMajor applied.
func (c Config) PresetConfig() (conventional.Preset, error) {
	p, err := conventional.LookupPreset(c.Preset)
	if err != nil {
		return p, err
	}
	p.PreMajor = c.PreMajor
	return p, nil
}

// ResolvedTagPrefix returns the explicit tag prefix, or the one derived from
// the project name.
func (c Config) ResolvedTagPrefix() string {
	if c.TagPrefix != nil {
		return *c.TagPrefix
	}
	return gitsemver.FormatTagPrefix(c.VersionTagPrefix, c.ProjectName, c.SyncVersions)
}

// Options converts c into engine options. dependencies replaces the configured
// dependency list when non-nil.
func (c Config) Options(dependencies []DependencyRoot) (Options, error) {
	preset, err := c.PresetConfig()
	if err != nil {
		return Options{}, err
	}
	rt, err := ParseReleaseType(c.ReleaseAs)
	if err != nil {
		return Options{}, err
	}
	if dependencies == nil {
		dependencies = c.Dependencies
	}
	return Options{
		ParserOptions:     c.Parser,
		Preset:            preset,
		ProjectRoot:       c.ProjectRoot,
		TagPrefix:         c.ResolvedTagPrefix(),
		DependencyRoots:   dependencies,
		ReleaseType:       rt,
		Preid:             c.Preid,
		SkipUnstable:      c.SkipUnstable,
		SyncVersions:      c.SyncVersions,
		AllowEmptyRelease: c.AllowEmptyRelease,
		VersionTagPrefix:  c.VersionTagPrefix,
		SkipCommitTypes:   c.SkipCommitTypes,
		ProjectName:       c.ProjectName,
	}, nil
}

func cleanRepoPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}
