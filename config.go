package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gopherjs/sourcemaps/build"
)

// config is the optional YAML configuration file. Command line flags take
// precedence over it.
type config struct {
	Root            string         `yaml:"root"`
	SourceRoot      string         `yaml:"sourceRoot"`
	Prefix          string         `yaml:"prefix"`
	Extensions      map[string]any `yaml:"extensions"`
	MergeExtensions string         `yaml:"mergeExtensions"`
	CacheDir        string         `yaml:"cacheDir"`
	NoCache         bool           `yaml:"noCache"`
	Experiments     string         `yaml:"experiments"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// apply copies the configured values into options, except for the ones set
// by a flag in flags.
func (cfg *config) apply(flags *pflag.FlagSet, options *build.Options) error {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if !changed("root") && cfg.Root != "" {
		options.Root = cfg.Root
	}
	if !changed("source-root") && cfg.SourceRoot != "" {
		options.SourceRoot = cfg.SourceRoot
	}
	if !changed("prefix") && cfg.Prefix != "" {
		options.Prefix = cfg.Prefix
	}
	if !changed("cache-dir") && cfg.CacheDir != "" {
		options.CacheDir = cfg.CacheDir
	}
	if !changed("no-cache") && cfg.NoCache {
		options.NoCache = true
	}
	if !changed("merge-extensions") && cfg.MergeExtensions != "" {
		var p mergePolicyValue
		if err := p.Set(cfg.MergeExtensions); err != nil {
			return err
		}
		options.MergePolicy = build.MergePolicy(p)
	}
	for k, v := range cfg.Extensions {
		if _, ok := options.Extensions[k]; ok {
			continue // Flags win.
		}
		if options.Extensions == nil {
			options.Extensions = map[string]any{}
		}
		options.Extensions[k] = v
	}
	return nil
}
