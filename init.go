package benchgen

import (
	"context"
	"fmt"
	"path/filepath"
)

const settingsTemplate = `# benchgen project configuration

# Directory with opts_defs.csv, benchmark_progs.csv and test_cases.csv,
# relative to this project directory
csv_dir = "benchmarks"

# Combined results file the generated scripts append to
results_file = "perf_test_results.txt"

# Default number of timing runs (NUM_ITERATIONS overrides it at run time)
# iterations = 10

# Generic options requested for every program ("id" or "id=value")
# opts = ["exclude_dir_literal=.git"]

# Regular expressions over program ids
# include = "^(ucg|rg)"
# exclude = "grep"
`

// Sample tables written by init --samples.
const (
	sampleDialects = `prog_id, opt_id, opt_lang_id, opt_text
, opt_only_type_ucg, cpp, --cpp
, opt_only_type_ucg, py, --python
, opt_only_type_ag, cpp, --cpp
, opt_only_type_ag, py, --python
, opt_only_type_rg, cpp, -tcpp
, opt_only_type_rg, py, -tpy
, opt_only_type_grep, cpp, "--include=*.cpp --include=*.hpp --include=*.h"
, opt_only_type_grep, py, --include=*.py
, ignore_case, , -i
grep, ignore_case, , --ignore-case
`
	samplePrograms = `prog_id, exename, pre_options, opt_exclude_dir_literal, opt_only_lang_type
ucg, ucg, --noenv, --exclude-dir=, opt_only_type_ucg
ag, ag, --noaffinity --nopager, --ignore-dir=, opt_only_type_ag
rg, rg, -Hn, , opt_only_type_rg
grep, grep, -Ern, --exclude-dir=, opt_only_type_grep
`
	sampleTestCases = `test_case_id, desc_long, file_type, regex, corpus
TC1, "Literal string search, C++ sources", cpp, BOOST, /usr/include/boost
TC2, "Identifier regex, Python sources", py, "\b[a-z]+_[a-z]+\b", /usr/lib/python3
`
)

// InitCommand initializes benchgen configuration in a directory.
type InitCommand struct {
	FS FileSystem
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Force bool
	// Samples also writes sample tables into the csv_dir of the template.
	Samples bool
}

// InitResult holds the result of the init command.
type InitResult struct {
	ConfigDir    string
	SettingsPath string
	SampleFiles  []string
	Created      bool
	Skipped      bool
	Overwritten  bool
}

// InitFormatOptions holds formatting options for InitResult.
type InitFormatOptions struct {
	Verbose bool
}

// NewInitCommand creates an InitCommand with explicit dependencies (for testing).
func NewInitCommand(fs FileSystem) *InitCommand {
	return &InitCommand{
		FS: fs,
	}
}

// NewDefaultInitCommand creates an InitCommand with production defaults.
func NewDefaultInitCommand() *InitCommand {
	return NewInitCommand(osFS{})
}

// Run executes the init command.
func (c *InitCommand) Run(ctx context.Context, dir string, opts InitOptions) (InitResult, error) {
	configDirPath := filepath.Join(dir, configDir)
	settingsPath := filepath.Join(configDirPath, configFileName)

	result := InitResult{
		ConfigDir:    configDirPath,
		SettingsPath: settingsPath,
	}

	// Check if settings file already exists
	_, err := c.FS.Stat(settingsPath)
	exists := err == nil || !c.FS.IsNotExist(err)

	if exists && !opts.Force {
		result.Skipped = true
		return result, nil
	}

	if err := c.FS.MkdirAll(configDirPath, 0755); err != nil {
		return result, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := c.FS.WriteFile(settingsPath, []byte(settingsTemplate), 0644); err != nil {
		return result, fmt.Errorf("failed to write settings file: %w", err)
	}

	result.Created = true
	if exists {
		result.Overwritten = true
	}

	if opts.Samples {
		files, err := c.writeSamples(filepath.Join(dir, "benchmarks"))
		result.SampleFiles = files
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

func (c *InitCommand) writeSamples(csvDir string) ([]string, error) {
	if err := c.FS.MkdirAll(csvDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}

	samples := []struct {
		table   string
		content string
	}{
		{TableDialects, sampleDialects},
		{TablePrograms, samplePrograms},
		{TableTestCases, sampleTestCases},
	}

	var written []string
	for _, s := range samples {
		path := filepath.Join(csvDir, CSVFileName(s.table))
		if err := c.FS.WriteFile(path, []byte(s.content), 0644); err != nil {
			return written, fmt.Errorf("failed to write sample table: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Format formats the result for output.
func (r InitResult) Format(opts InitFormatOptions) FormatResult {
	var stdout string

	relPath := filepath.Join(configDir, configFileName)

	switch {
	case r.Skipped:
		stdout = fmt.Sprintf("Skipped %s (already exists)\n", relPath)
	case r.Overwritten:
		stdout = fmt.Sprintf("Created %s (overwritten)\n", relPath)
	case r.Created:
		stdout = fmt.Sprintf("Created %s\n", relPath)
	}

	for _, f := range r.SampleFiles {
		if opts.Verbose {
			stdout += fmt.Sprintf("Created %s\n", f)
		}
	}
	if len(r.SampleFiles) > 0 && !opts.Verbose {
		stdout += fmt.Sprintf("Created %d sample tables\n", len(r.SampleFiles))
	}

	return FormatResult{
		Stdout: stdout,
	}
}
