package benchgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// GenerateCommand generates the benchmark script for one test case.
type GenerateCommand struct {
	FS  FileSystem
	Log *slog.Logger
}

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	TestCaseID  string
	CSVDir      string
	ResultsFile string
	Iterations  int
	// Options are generic option requests, "id" or "id=value".
	Options []string
	// Include and Exclude are regular expressions over program ids.
	Include string
	Exclude string
	// OutputFile receives the script when set, otherwise Output does.
	// Nothing is written unless generation succeeds.
	OutputFile string
	Output     io.Writer
}

// GenerateResult holds the result of the generate command.
type GenerateResult struct {
	TestCaseID  string
	OutputFile  string
	Programs    []string
	Excluded    []string
	Filtered    []string
	Diagnostics []Diagnostic
}

// NewGenerateCommand creates a GenerateCommand with explicit dependencies (for testing).
func NewGenerateCommand(fs FileSystem, log *slog.Logger) *GenerateCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &GenerateCommand{
		FS:  fs,
		Log: log,
	}
}

// NewDefaultGenerateCommand creates a GenerateCommand with production defaults.
func NewDefaultGenerateCommand(log *slog.Logger) *GenerateCommand {
	return NewGenerateCommand(osFS{}, log)
}

// CompileFilters validates and compiles the program include/exclude
// patterns. Identical non-empty patterns are rejected.
func CompileFilters(include, exclude string) (inc, exc *regexp.Regexp, err error) {
	if include != "" && include == exclude {
		return nil, nil, ErrConflictingFilters
	}
	if include != "" {
		if inc, err = regexp.Compile(include); err != nil {
			return nil, nil, fmt.Errorf("invalid include pattern: %w", err)
		}
	}
	if exclude != "" {
		if exc, err = regexp.Compile(exclude); err != nil {
			return nil, nil, fmt.Errorf("invalid exclude pattern: %w", err)
		}
	}
	return inc, exc, nil
}

// Run executes the generate command.
func (c *GenerateCommand) Run(ctx context.Context, opts GenerateOptions) (GenerateResult, error) {
	result := GenerateResult{
		TestCaseID: opts.TestCaseID,
		OutputFile: opts.OutputFile,
	}
	baseLog := c.Log
	if baseLog == nil {
		baseLog = NewNopLogger()
	}

	inc, exc, err := CompileFilters(opts.Include, opts.Exclude)
	if err != nil {
		return result, err
	}
	if opts.TestCaseID == "" {
		return result, fmt.Errorf("test case id is required")
	}
	if opts.CSVDir == "" {
		return result, fmt.Errorf("csv directory is required")
	}
	if opts.ResultsFile == "" {
		return result, fmt.Errorf("test results file name is required")
	}

	log := baseLog.With(LogAttrKeyTestCaseID.Attr(opts.TestCaseID))
	log.DebugContext(ctx, fmt.Sprintf("loading tables from %s", opts.CSVDir),
		LogAttrKeyCategory.Attr(LogCategoryGenerate))

	store, err := LoadDir(c.FS, opts.CSVDir, baseLog)
	if err != nil {
		return result, err
	}
	defer func() { _ = store.Close() }()

	requested := ParseOptionRequests(opts.Options)
	m := Materialize(store, requested, MaterializeOptions{
		Include: inc,
		Exclude: exc,
		Log:     baseLog,
	})
	result.Excluded = m.Excluded
	result.Filtered = m.Filtered
	result.Diagnostics = m.Diagnostics

	rows := m.ForTestCase(opts.TestCaseID)
	for _, row := range rows {
		result.Programs = append(result.Programs, row.ProgID)
	}

	var buf bytes.Buffer
	if err := Synthesize(&buf, opts.TestCaseID, rows, opts.ResultsFile, opts.Iterations); err != nil {
		return result, err
	}
	log.DebugContext(ctx, fmt.Sprintf("rendered %d bytes for %d programs", buf.Len(), len(rows)),
		LogAttrKeyCategory.Attr(LogCategoryScript))

	if opts.OutputFile != "" {
		if err := c.FS.WriteFile(opts.OutputFile, buf.Bytes(), 0755); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", opts.OutputFile, err)
		}
		return result, nil
	}
	if opts.Output == nil {
		return result, fmt.Errorf("no output destination")
	}
	if _, err := opts.Output.Write(buf.Bytes()); err != nil {
		return result, fmt.Errorf("failed to write script: %w", err)
	}
	return result, nil
}

// Format formats the result. The script itself is never part of it.
func (r GenerateResult) Format(opts FormatOptions) FormatResult {
	var stdout, stderr strings.Builder

	for _, progID := range r.Excluded {
		fmt.Fprintf(&stderr, "%s program %q excluded: unresolved opt_only_lang_type\n",
			colorize(opts.ColorEnabled, colorWarning, "warning:"), progID)
	}

	if opts.Verbose {
		for _, d := range r.Diagnostics {
			if d.Kind == DiagUnresolvedReference {
				continue
			}
			fmt.Fprintf(&stderr, "%s %s\n", colorize(opts.ColorEnabled, colorInfo, "note:"), d.Message())
		}
		if len(r.Filtered) > 0 {
			fmt.Fprintf(&stderr, "Filtered out: %s\n", strings.Join(r.Filtered, ", "))
		}
		fmt.Fprintf(&stderr, "Generated %s: %d program(s): %s\n",
			r.TestCaseID, len(r.Programs), strings.Join(r.Programs, ", "))
	}

	if r.OutputFile != "" {
		fmt.Fprintf(&stdout, "Created %s\n", r.OutputFile)
	}

	return FormatResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
}
