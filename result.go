package benchgen

// FormatOptions configures how generate and tables results are rendered.
type FormatOptions struct {
	// Verbose adds the per-program summary and diagnostics.
	Verbose bool
	// ColorEnabled colors warnings (--color=auto/always).
	ColorEnabled bool
}

// FormatResult holds rendered output. Scripts and tables go to Stdout,
// summaries and warnings to Stderr.
type FormatResult struct {
	Stdout string
	Stderr string
}

// Formatter is implemented by results rendered with FormatOptions.
type Formatter interface {
	Format(opts FormatOptions) FormatResult
}

var (
	_ Formatter = GenerateResult{}
	_ Formatter = TablesResult{}
)
