package benchgen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	configDir           = ".benchgen"
	configFileName      = "settings.toml"
	localConfigFileName = "settings.local.toml"
)

// Config holds defaults for script generation. Command line flags take
// precedence over every field.
type Config struct {
	// CSVDir is the directory holding the table CSV files. A relative path
	// is resolved against the directory the config was loaded from.
	CSVDir      string   `toml:"csv_dir"`
	ResultsFile string   `toml:"results_file"`
	Iterations  int      `toml:"iterations"`
	Opts        []string `toml:"opts"`
	Include     string   `toml:"include"`
	Exclude     string   `toml:"exclude"`
}

// LoadConfigResult holds the merged config and non-fatal warnings.
type LoadConfigResult struct {
	Config   *Config
	Warnings []string
}

// LoadConfig loads the project settings and the local override from dir.
// Scalars from the local file override the project file; opts from both
// files are combined without duplicates, project first.
func LoadConfig(dir string) (*LoadConfigResult, error) {
	result := &LoadConfigResult{Config: &Config{}}

	projPath := filepath.Join(dir, configDir, configFileName)
	projCfg, warnings, err := loadConfigFile(projPath)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	localPath := filepath.Join(dir, configDir, localConfigFileName)
	localCfg, warnings, err := loadConfigFile(localPath)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	cfg := result.Config
	seen := make(map[string]bool)
	for _, c := range []*Config{projCfg, localCfg} {
		if c == nil {
			continue
		}
		if c.CSVDir != "" {
			cfg.CSVDir = c.CSVDir
		}
		if c.ResultsFile != "" {
			cfg.ResultsFile = c.ResultsFile
		}
		if c.Iterations != 0 {
			cfg.Iterations = c.Iterations
		}
		if c.Include != "" {
			cfg.Include = c.Include
		}
		if c.Exclude != "" {
			cfg.Exclude = c.Exclude
		}
		for _, opt := range c.Opts {
			if !seen[opt] {
				seen[opt] = true
				cfg.Opts = append(cfg.Opts, opt)
			}
		}
	}

	if cfg.Iterations < 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("iterations must not be negative (got %d), using %d", cfg.Iterations, DefaultIterations))
		cfg.Iterations = 0
	}
	if cfg.CSVDir != "" && !filepath.IsAbs(cfg.CSVDir) {
		cfg.CSVDir = filepath.Join(dir, cfg.CSVDir)
	}

	return result, nil
}

func loadConfigFile(path string) (*Config, []string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("%s: unknown key %q", path, key.String()))
	}

	return &config, warnings, nil
}
