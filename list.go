package benchgen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
)

// ListCommand lists the test cases defined in the tables.
type ListCommand struct {
	FS  FileSystem
	Log *slog.Logger
}

// ListOptions holds options for the list command.
type ListOptions struct {
	CSVDir string
	// Pattern is a glob over test case ids, e.g. "literal_*". Empty lists all.
	Pattern string
}

// ListResult holds the result of a list operation.
type ListResult struct {
	TestCases []TestCaseEntry
}

// ListFormatOptions holds formatting options for ListResult.
type ListFormatOptions struct {
	Quiet bool
}

// NewListCommand creates a ListCommand with explicit dependencies (for testing).
func NewListCommand(fs FileSystem, log *slog.Logger) *ListCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &ListCommand{FS: fs, Log: log}
}

// NewDefaultListCommand creates a ListCommand with production defaults.
func NewDefaultListCommand(log *slog.Logger) *ListCommand {
	return NewListCommand(osFS{}, log)
}

// Run lists the test cases matching opts.Pattern in table order.
func (c *ListCommand) Run(ctx context.Context, opts ListOptions) (ListResult, error) {
	if opts.Pattern != "" && !doublestar.ValidatePattern(opts.Pattern) {
		return ListResult{}, fmt.Errorf("invalid pattern %q", opts.Pattern)
	}
	if opts.CSVDir == "" {
		return ListResult{}, fmt.Errorf("csv directory is required")
	}

	store, err := LoadDir(c.FS, opts.CSVDir, c.Log)
	if err != nil {
		return ListResult{}, err
	}
	defer func() { _ = store.Close() }()

	var result ListResult
	for _, tc := range store.TestCases() {
		if opts.Pattern != "" {
			// Pattern validity was checked above.
			if ok, _ := doublestar.Match(opts.Pattern, tc.TestCaseID); !ok {
				continue
			}
		}
		result.TestCases = append(result.TestCases, tc)
	}

	c.Log.DebugContext(ctx, fmt.Sprintf("%d test case(s) match %q", len(result.TestCases), opts.Pattern),
		LogAttrKeyCategory.String(), LogCategoryStore)
	return result, nil
}

// Format formats the ListResult for display.
func (r ListResult) Format(opts ListFormatOptions) FormatResult {
	var buf bytes.Buffer

	if opts.Quiet {
		for _, tc := range r.TestCases {
			fmt.Fprintln(&buf, tc.TestCaseID)
		}
		return FormatResult{Stdout: buf.String()}
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, tc := range r.TestCases {
		fmt.Fprintf(w, "%s\t%s\t%s\n", tc.TestCaseID, tc.FileType, tc.DescLong)
	}
	w.Flush()

	return FormatResult{Stdout: buf.String()}
}
