package benchgen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"
)

// TableResultSet names the materialized result table for TablesCommand.
const TableResultSet = "result"

// TableNames lists the tables TablesCommand can print.
var TableNames = []string{TableDialects, TablePrograms, TableTestCases, TableResultSet}

// TablesCommand prints base tables or the materialized result set.
type TablesCommand struct {
	FS  FileSystem
	Log *slog.Logger
}

// TablesOptions holds options for the tables command.
type TablesOptions struct {
	CSVDir string
	// Tables to print; empty prints every table.
	Tables []string
	// Options, Include and Exclude apply to the result table only.
	Options []string
	Include string
	Exclude string
}

// Table is a printable table.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// TablesResult holds the tables to print.
type TablesResult struct {
	Tables []Table
}

// NewTablesCommand creates a TablesCommand with explicit dependencies (for testing).
func NewTablesCommand(fs FileSystem, log *slog.Logger) *TablesCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &TablesCommand{FS: fs, Log: log}
}

// NewDefaultTablesCommand creates a TablesCommand with production defaults.
func NewDefaultTablesCommand(log *slog.Logger) *TablesCommand {
	return NewTablesCommand(osFS{}, log)
}

// Run loads the tables and collects the requested ones.
func (c *TablesCommand) Run(ctx context.Context, opts TablesOptions) (TablesResult, error) {
	names := opts.Tables
	if len(names) == 0 {
		names = TableNames
	}
	for _, name := range names {
		if !isTableName(name) {
			return TablesResult{}, fmt.Errorf("unknown table %q (available: %s)", name, strings.Join(TableNames, ", "))
		}
	}

	inc, exc, err := CompileFilters(opts.Include, opts.Exclude)
	if err != nil {
		return TablesResult{}, err
	}

	store, err := LoadDir(c.FS, opts.CSVDir, c.Log)
	if err != nil {
		return TablesResult{}, err
	}
	defer func() { _ = store.Close() }()

	var result TablesResult
	for _, name := range names {
		switch name {
		case TableDialects:
			result.Tables = append(result.Tables, dialectTable(store.Dialects()))
		case TablePrograms:
			result.Tables = append(result.Tables, programTable(store.Programs()))
		case TableTestCases:
			result.Tables = append(result.Tables, testCaseTable(store.TestCases()))
		case TableResultSet:
			m := Materialize(store, ParseOptionRequests(opts.Options), MaterializeOptions{
				Include: inc,
				Exclude: exc,
				Log:     c.Log,
			})
			result.Tables = append(result.Tables, resultTable(m.Rows))
		}
	}

	c.Log.DebugContext(ctx, fmt.Sprintf("collected %d table(s)", len(result.Tables)),
		LogAttrKeyCategory.String(), LogCategoryStore)
	return result, nil
}

func isTableName(name string) bool {
	return slices.Contains(TableNames, name)
}

func dialectTable(entries []DialectEntry) Table {
	t := Table{Name: TableDialects, Header: []string{ColProgID, ColOptID, ColOptLangID, ColOptText}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.ProgID, e.OptID, e.OptLangID, e.OptText})
	}
	return t
}

func programTable(programs []ProgramEntry) Table {
	t := Table{Name: TablePrograms, Header: []string{ColProgID, ColExeName, ColPreOptions, ColOptExcludeDirLiteral, ColOptOnlyLangType}}
	for _, p := range programs {
		t.Rows = append(t.Rows, []string{p.ProgID, p.ExeName, p.PreOptions, p.OptExcludeDirLiteral, p.OptOnlyLangType})
	}
	return t
}

func testCaseTable(testCases []TestCaseEntry) Table {
	t := Table{Name: TableTestCases, Header: []string{ColTestCaseID, ColDescLong, ColFileType, ColRegex, ColCorpus}}
	for _, tc := range testCases {
		t.Rows = append(t.Rows, []string{tc.TestCaseID, tc.DescLong, tc.FileType, tc.Regex, tc.Corpus})
	}
	return t
}

func resultTable(rows []ResolvedInvocation) Table {
	t := Table{Name: TableResultSet, Header: []string{
		ColTestCaseID, ColDescLong, ColProgID, ColExeName, ColPreOptions, "other_options", "opt_filetype", ColRegex, ColCorpus,
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.TestCaseID, r.DescLong, r.ProgID, r.ExeName, r.PreOptions, r.OtherOptions, r.OptFiletype, r.Regex, r.Corpus,
		})
	}
	return t
}

// Format formats every table as an indented, aligned block.
// Empty cells are shown as "-".
func (r TablesResult) Format(opts FormatOptions) FormatResult {
	var out bytes.Buffer
	iw := NewIndentWriter(&out, "  ")

	for i, t := range r.Tables {
		if i > 0 {
			iw.Blankln()
		}
		iw.Writef("%s (%d rows)", colorize(opts.ColorEnabled, colorHeader, t.Name), len(t.Rows))
		iw.Indent()

		var buf bytes.Buffer
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(t.Header, "\t"))
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for j, cell := range row {
				if cell == "" {
					cell = "-"
				}
				cells[j] = cell
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		w.Flush()

		for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			iw.Writeln(strings.TrimRight(line, " "))
		}
		iw.Dedent()
	}

	return FormatResult{Stdout: out.String()}
}
