package config

import (
	"fmt"
	"os"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"github.com/dejo1307/assocgen/internal/macro"
)

// Config represents the assocgen.yaml configuration.
type Config struct {
	Repo           string       `yaml:"repo"`
	Ignore         []string     `yaml:"ignore"`
	Macro          MacroConfig  `yaml:"macro"`
	Renderers      []string     `yaml:"renderers"`
	Output         OutputConfig `yaml:"output"`
	MaxReportLines int          `yaml:"max_report_lines"`
}

// MacroConfig controls how annotated declarations are recognized and expanded.
type MacroConfig struct {
	Attribute     string `yaml:"attribute"`
	DefaultPolicy string `yaml:"default_policy"`
	FlagPolicy    string `yaml:"flag_policy"`
}

// OutputConfig controls where expanded sources and run artifacts are written.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Suffix  string `yaml:"suffix"`
	InPlace bool   `yaml:"in_place"`
	Report  bool   `yaml:"report"`
}

const (
	DefaultOutputDir      = ".assocgen"
	DefaultSuffix         = "+Expanded.swift"
	DefaultMaxReportLines = 400
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Repo: ".",
		Ignore: []string{
			".git/**",
			".build/**",
			"Pods/**",
			"Carthage/**",
			"DerivedData/**",
			DefaultOutputDir + "/**",
			"**/*" + DefaultSuffix,
		},
		Macro: MacroConfig{
			Attribute:     macro.DefaultAttribute,
			DefaultPolicy: macro.DefaultPolicy,
			FlagPolicy:    macro.DefaultFlagPolicy,
		},
		Renderers: []string{"report"},
		Output: OutputConfig{
			Dir:    DefaultOutputDir,
			Suffix: DefaultSuffix,
			Report: true,
		},
		MaxReportLines: DefaultMaxReportLines,
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Ensure required defaults
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.Suffix == "" {
		cfg.Output.Suffix = DefaultSuffix
	}
	if cfg.MaxReportLines == 0 {
		cfg.MaxReportLines = DefaultMaxReportLines
	}
	if cfg.Macro.Attribute == "" {
		cfg.Macro.Attribute = macro.DefaultAttribute
	}

	return cfg, nil
}

// Clone returns a deep copy of the configuration, so callers can apply
// per-request overrides without touching shared state.
func (c *Config) Clone() (*Config, error) {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("cloning config: %w", err)
	}
	return out, nil
}

// MacroOptions returns the expander options described by the configuration.
func (c *Config) MacroOptions() macro.Options {
	return macro.Options{
		Attribute:     c.Macro.Attribute,
		DefaultPolicy: c.Macro.DefaultPolicy,
		FlagPolicy:    c.Macro.FlagPolicy,
	}
}

// IsRendererEnabled returns true if the named renderer is enabled.
func (c *Config) IsRendererEnabled(name string) bool {
	if name == "report" && !c.Output.Report {
		return false
	}
	return contains(c.Renderers, name)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
