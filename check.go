package benchgen

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// CheckCommand validates the benchmark tables and the environment the
// generated scripts will run in.
type CheckCommand struct {
	FS       FileSystem
	LookPath func(file string) (string, error)
	Log      *slog.Logger
}

// CheckOptions holds options for the check command.
type CheckOptions struct {
	CSVDir string
	// Options are checked for programs that cannot express them.
	Options []string
}

// CheckSeverity represents the severity level of a check item.
type CheckSeverity string

const (
	SeverityOK    CheckSeverity = "ok"
	SeverityInfo  CheckSeverity = "info"
	SeverityWarn  CheckSeverity = "warn"
	SeverityError CheckSeverity = "error"
)

// CheckCategory represents the category of a check item.
type CheckCategory string

const (
	CategoryTables    CheckCategory = "tables"
	CategoryPrograms  CheckCategory = "programs"
	CategoryTestCases CheckCategory = "test_cases"
)

var checkCategories = []CheckCategory{CategoryTables, CategoryPrograms, CategoryTestCases}

// CheckItem represents a single check result.
type CheckItem struct {
	Category   CheckCategory
	Severity   CheckSeverity
	Message    string
	Suggestion string
}

// CheckResult holds the result of all checks.
type CheckResult struct {
	Items  []CheckItem
	CSVDir string
}

// CheckFormatOptions holds formatting options for CheckResult.
type CheckFormatOptions struct {
	Verbose      bool
	Quiet        bool
	ColorEnabled bool
}

// NewCheckCommand creates a CheckCommand with explicit dependencies (for testing).
func NewCheckCommand(fs FileSystem, lookPath func(string) (string, error), log *slog.Logger) *CheckCommand {
	if log == nil {
		log = NewNopLogger()
	}
	return &CheckCommand{
		FS:       fs,
		LookPath: lookPath,
		Log:      log,
	}
}

// NewDefaultCheckCommand creates a CheckCommand with production defaults.
func NewDefaultCheckCommand(log *slog.Logger) *CheckCommand {
	return NewCheckCommand(osFS{}, exec.LookPath, log)
}

// ErrorCount returns the number of errors.
func (r CheckResult) ErrorCount() int { return r.count(SeverityError) }

// WarningCount returns the number of warnings.
func (r CheckResult) WarningCount() int { return r.count(SeverityWarn) }

// InfoCount returns the number of info items.
func (r CheckResult) InfoCount() int { return r.count(SeverityInfo) }

func (r CheckResult) count(sev CheckSeverity) int {
	count := 0
	for _, item := range r.Items {
		if item.Severity == sev {
			count++
		}
	}
	return count
}

// Format formats the CheckResult for display.
func (r CheckResult) Format(opts CheckFormatOptions) FormatResult {
	var stdout strings.Builder

	if opts.Quiet {
		for _, item := range r.Items {
			if item.Severity == SeverityError {
				fmt.Fprintf(&stdout, "[%s] %s\n", colorize(opts.ColorEnabled, colorError, "error"), item.Message)
			}
		}
		return FormatResult{Stdout: stdout.String()}
	}

	first := true
	for _, cat := range checkCategories {
		items := r.filterByCategory(cat)
		if len(items) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(&stdout)
		}
		first = false
		r.formatCategory(&stdout, string(cat)+":", items, opts)
	}

	fmt.Fprintf(&stdout, "\nSummary: %d errors, %d warnings, %d info\n",
		r.ErrorCount(), r.WarningCount(), r.InfoCount())

	return FormatResult{Stdout: stdout.String()}
}

func (r CheckResult) filterByCategory(cat CheckCategory) []CheckItem {
	var items []CheckItem
	for _, item := range r.Items {
		if item.Category == cat {
			items = append(items, item)
		}
	}
	return items
}

func (r CheckResult) formatCategory(w *strings.Builder, header string, items []CheckItem, opts CheckFormatOptions) {
	fmt.Fprintln(w, colorize(opts.ColorEnabled, colorHeader, header))

	for _, item := range items {
		// Skip ok items unless verbose
		if item.Severity == SeverityOK && !opts.Verbose {
			continue
		}

		fmt.Fprintf(w, "  [%s] %s\n", colorSeverity(opts.ColorEnabled, item.Severity), item.Message)
		if item.Suggestion != "" {
			fmt.Fprintf(w, "         suggestion: %s\n", item.Suggestion)
		}
	}
}

func colorSeverity(enabled bool, sev CheckSeverity) string {
	switch sev {
	case SeverityOK:
		return colorize(enabled, colorOK, string(sev))
	case SeverityInfo:
		return colorize(enabled, colorInfo, string(sev))
	case SeverityWarn:
		return colorize(enabled, colorWarning, string(sev))
	default:
		return colorize(enabled, colorError, string(sev))
	}
}

// Run executes all checks. Table load failures are reported as error items,
// not as a returned error.
func (c *CheckCommand) Run(ctx context.Context, opts CheckOptions) (CheckResult, error) {
	result := CheckResult{CSVDir: opts.CSVDir}

	store, err := LoadDir(c.FS, opts.CSVDir, c.Log)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Category:   CategoryTables,
			Severity:   SeverityError,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("fix %s, %s and %s in %s", CSVFileName(TableDialects), CSVFileName(TablePrograms), CSVFileName(TableTestCases), opts.CSVDir),
		})
		return result, nil
	}
	defer func() { _ = store.Close() }()

	result.Items = append(result.Items, CheckItem{
		Category: CategoryTables,
		Severity: SeverityOK,
		Message: fmt.Sprintf("tables loaded: %d dialect entries, %d programs, %d test cases",
			len(store.Dialects()), len(store.Programs()), len(store.TestCases())),
	})

	c.checkPrograms(ctx, store, ParseOptionRequests(opts.Options), &result)
	c.checkTestCases(store, &result)

	return result, nil
}

func (c *CheckCommand) checkPrograms(ctx context.Context, store *Store, requested []OptionRequest, result *CheckResult) {
	resolver := NewResolver(store, c.Log)
	resolver.ResolveOptions(requested)

	for _, p := range store.Programs() {
		if !resolver.HasValidReference(p) {
			result.Items = append(result.Items, CheckItem{
				Category:   CategoryPrograms,
				Severity:   SeverityWarn,
				Message:    fmt.Sprintf("program %q is excluded: opt_only_lang_type %q has no dialect entry", p.ProgID, p.OptOnlyLangType),
				Suggestion: fmt.Sprintf("add %s rows with opt_id %q", CSVFileName(TableDialects), p.OptOnlyLangType),
			})
			continue
		}

		if c.LookPath != nil {
			if _, err := c.LookPath(p.ExeName); err != nil {
				c.Log.DebugContext(ctx, fmt.Sprintf("lookup %s: %v", p.ExeName, err),
					LogAttrKeyCategory.String(), LogCategoryDebug)
				result.Items = append(result.Items, CheckItem{
					Category: CategoryPrograms,
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("program %q: %s not found, generated scripts will skip it", p.ProgID, p.ExeName),
				})
				continue
			}
		}

		result.Items = append(result.Items, CheckItem{
			Category: CategoryPrograms,
			Severity: SeverityOK,
			Message:  fmt.Sprintf("program %q resolves", p.ProgID),
		})
	}

	for _, d := range resolver.Diagnostics() {
		if d.Kind != DiagNoOptionMatch {
			continue
		}
		item := CheckItem{
			Category: CategoryPrograms,
			Severity: SeverityInfo,
			Message:  d.Message(),
		}
		// Requested options only resolve through entries without a file type.
		if _, generic := store.Dialect(d.ProgID, d.OptID, ""); !generic && store.HasOption(d.ProgID, d.OptID) {
			item.Suggestion = fmt.Sprintf("%s defines %q only for specific file types, add a row with an empty opt_lang_id",
				CSVFileName(TableDialects), d.OptID)
		}
		result.Items = append(result.Items, item)
	}
}

func (c *CheckCommand) checkTestCases(store *Store, result *CheckResult) {
	resolver := NewResolver(store, c.Log)

	for _, tc := range store.TestCases() {
		var missingFiletype []string
		for _, p := range store.Programs() {
			if !store.HasOption(p.ProgID, p.OptOnlyLangType) {
				continue
			}
			if resolver.ResolveFiletype(p.ProgID, tc.FileType) == "" {
				missingFiletype = append(missingFiletype, p.ProgID)
			}
		}
		if len(missingFiletype) > 0 {
			result.Items = append(result.Items, CheckItem{
				Category: CategoryTestCases,
				Severity: SeverityInfo,
				Message: fmt.Sprintf("test case %q: no file type flag for %q in %s",
					tc.TestCaseID, tc.FileType, strings.Join(missingFiletype, ", ")),
			})
		}

		switch {
		case strings.Contains(tc.Corpus, "$"):
			result.Items = append(result.Items, CheckItem{
				Category: CategoryTestCases,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("test case %q: corpus %q is expanded by the script, not checked", tc.TestCaseID, tc.Corpus),
			})
		case !filepath.IsAbs(tc.Corpus):
			result.Items = append(result.Items, CheckItem{
				Category: CategoryTestCases,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("test case %q: corpus %q is relative to the script's working directory", tc.TestCaseID, tc.Corpus),
			})
		default:
			if _, err := c.FS.Stat(tc.Corpus); err != nil && c.FS.IsNotExist(err) {
				result.Items = append(result.Items, CheckItem{
					Category:   CategoryTestCases,
					Severity:   SeverityWarn,
					Message:    fmt.Sprintf("test case %q: corpus %s does not exist", tc.TestCaseID, tc.Corpus),
					Suggestion: "the generated script will report this test as skipped",
				})
				continue
			}
			result.Items = append(result.Items, CheckItem{
				Category: CategoryTestCases,
				Severity: SeverityOK,
				Message:  fmt.Sprintf("test case %q: corpus present", tc.TestCaseID),
			})
		}
	}
}
