package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"text/tabwriter"

	"github.com/708u/benchgen"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GenerateCommander is the interface for GenerateCommand execution.
type GenerateCommander interface {
	Run(ctx context.Context, opts benchgen.GenerateOptions) (benchgen.GenerateResult, error)
}

// ListCommander defines the interface for list operations.
type ListCommander interface {
	Run(ctx context.Context, opts benchgen.ListOptions) (benchgen.ListResult, error)
}

// TablesCommander defines the interface for tables operations.
type TablesCommander interface {
	Run(ctx context.Context, opts benchgen.TablesOptions) (benchgen.TablesResult, error)
}

// CheckCommander defines the interface for check operations.
type CheckCommander interface {
	Run(ctx context.Context, opts benchgen.CheckOptions) (benchgen.CheckResult, error)
}

// InitCommander defines the interface for init operations.
type InitCommander interface {
	Run(ctx context.Context, dir string, opts benchgen.InitOptions) (benchgen.InitResult, error)
}

type options struct {
	generateCommander  GenerateCommander // nil = use default
	listCommander      ListCommander     // nil = use default
	tablesCommander    TablesCommander   // nil = use default
	checkCommander     CheckCommander    // nil = use default
	initCommander      InitCommander     // nil = use default
	commandIDGenerator func() string     // nil = use benchgen.GenerateCommandID
}

// Option configures newRootCmd.
type Option func(*options)

// WithGenerateCommander sets the GenerateCommander instance for testing.
func WithGenerateCommander(cmd GenerateCommander) Option {
	return func(o *options) {
		o.generateCommander = cmd
	}
}

// WithListCommander sets the ListCommander instance for testing.
func WithListCommander(cmd ListCommander) Option {
	return func(o *options) {
		o.listCommander = cmd
	}
}

// WithTablesCommander sets the TablesCommander instance for testing.
func WithTablesCommander(cmd TablesCommander) Option {
	return func(o *options) {
		o.tablesCommander = cmd
	}
}

// WithCheckCommander sets the CheckCommander instance for testing.
func WithCheckCommander(cmd CheckCommander) Option {
	return func(o *options) {
		o.checkCommander = cmd
	}
}

// WithInitCommander sets the InitCommander instance for testing.
func WithInitCommander(cmd InitCommander) Option {
	return func(o *options) {
		o.initCommander = cmd
	}
}

// WithCommandIDGenerator sets the command ID generator for testing.
func WithCommandIDGenerator(gen func() string) Option {
	return func(o *options) {
		o.commandIDGenerator = gen
	}
}

func resolveDirectory(dirFlag, baseCwd string) (string, error) {
	if dirFlag == "" {
		return baseCwd, nil
	}

	var resolved string
	if !filepath.IsAbs(dirFlag) {
		resolved = filepath.Join(baseCwd, dirFlag)
	} else {
		resolved = dirFlag
	}

	resolved, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot change to '%s': %w", dirFlag, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("cannot change to '%s': not a directory", dirFlag)
	}

	return resolved, nil
}

// resolvePath makes a flag path relative to the -C directory.
func resolvePath(path, cwd string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// createLogger creates a logger based on verbosity level.
// Returns a nop logger for verbosity < 2, or a CLI handler logger for -vv.
func createLogger(w io.Writer, verbosity int, idGen func() string) *slog.Logger {
	if verbosity < 2 {
		return benchgen.NewNopLogger()
	}
	handler := benchgen.NewCLIHandler(w, benchgen.VerbosityToLevel(verbosity))
	handlerWithID := handler.WithAttrs([]slog.Attr{
		benchgen.LogAttrKeyCmdID.Attr(idGen()),
	})
	return slog.New(handlerWithID)
}

func writeResult(cmd *cobra.Command, result benchgen.Formatter, opts benchgen.FormatOptions) {
	writeFormatted(cmd, result.Format(opts))
}

func writeFormatted(cmd *cobra.Command, formatted benchgen.FormatResult) {
	if formatted.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), formatted.Stderr)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatted.Stdout)
}

func newRootCmd(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		cfg       *benchgen.Config
		cwd       string
		dirFlag   string
		colorFlag string
	)

	idGen := func() string {
		if o.commandIDGenerator != nil {
			return o.commandIDGenerator()
		}
		return benchgen.GenerateCommandID()
	}

	loggerFor := func(cmd *cobra.Command) *slog.Logger {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		return createLogger(cmd.ErrOrStderr(), verbosity, idGen)
	}

	// csvDirFor returns --csv-dir, falling back to csv_dir from the config.
	csvDirFor := func(cmd *cobra.Command) (string, error) {
		csvDir, _ := cmd.Flags().GetString("csv-dir")
		csvDir = resolvePath(csvDir, cwd)
		if csvDir == "" {
			csvDir = cfg.CSVDir
		}
		if csvDir == "" {
			return "", fmt.Errorf("no csv directory: use --csv-dir or set csv_dir in %s", filepath.Join(".benchgen", "settings.toml"))
		}
		return csvDir, nil
	}

	// optsFor returns --opt values, or the config opts when the flag is unset.
	optsFor := func(cmd *cobra.Command) []string {
		if cmd.Flags().Changed("opt") {
			values, _ := cmd.Flags().GetStringArray("opt")
			return values
		}
		return cfg.Opts
	}

	// filtersFor returns --include/--exclude with config fallbacks.
	filtersFor := func(cmd *cobra.Command) (string, string) {
		include, _ := cmd.Flags().GetString("include")
		exclude, _ := cmd.Flags().GetString("exclude")
		if !cmd.Flags().Changed("include") {
			include = cfg.Include
		}
		if !cmd.Flags().Changed("exclude") {
			exclude = cfg.Exclude
		}
		return include, exclude
	}

	rootCmd := &cobra.Command{
		Use:           "benchgen",
		Short:         "Generate benchmark scripts for competing search tools",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			originalCwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}

			cwd, err = resolveDirectory(dirFlag, originalCwd)
			if err != nil {
				return err
			}

			mode, err := benchgen.ParseColorMode(colorFlag)
			if err != nil {
				return err
			}
			benchgen.SetColorMode(mode)

			result, err := benchgen.LoadConfig(cwd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			cfg = result.Config
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	completeTestCases := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		currentCwd, err := os.Getwd()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		flag, _ := cmd.Root().PersistentFlags().GetString("directory")
		dir, err := resolveDirectory(flag, currentCwd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		csvDir, _ := cmd.Flags().GetString("csv-dir")
		csvDir = resolvePath(csvDir, dir)
		if csvDir == "" {
			result, err := benchgen.LoadConfig(dir)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			csvDir = result.Config.CSVDir
		}
		list, err := benchgen.NewDefaultListCommand(nil).Run(cmd.Context(), benchgen.ListOptions{
			CSVDir:  csvDir,
			Pattern: toComplete + "*",
		})
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		ids := make([]string, 0, len(list.TestCases))
		for _, tc := range list.TestCases {
			ids = append(ids, tc.TestCaseID)
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the benchmark script for one test case",
		Long: `Generate the benchmark script for one test case.

The script runs every program that supports the test case's file type
against the corpus: one prep run whose sorted output is kept for diffing,
then NUM_ITERATIONS timed runs.

Use --opt to request a generic option for every program; each program
gets its own spelling of it, programs without one get nothing. Options are
looked up in opts_defs rows with an empty opt_lang_id, then in the
program's opt_<id> column; run "benchgen check --opt ID" to see which
programs lack a spelling:

  benchgen generate -c TC1 -r results.txt --opt ignore_case
  benchgen generate -c TC1 -r results.txt --opt exclude_dir_literal=.git`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			include, exclude := filtersFor(cmd)
			if _, _, err := benchgen.CompileFilters(include, exclude); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			testCase, _ := cmd.Flags().GetString("test-case")
			resultsFile, _ := cmd.Flags().GetString("test-output")
			outputFile, _ := cmd.Flags().GetString("output-file")
			iterations, _ := cmd.Flags().GetInt("iterations")

			csvDir, err := csvDirFor(cmd)
			if err != nil {
				return err
			}
			if resultsFile == "" {
				resultsFile = cfg.ResultsFile
			}
			if resultsFile == "" {
				return fmt.Errorf("no test results file: use --test-output or set results_file")
			}
			if !cmd.Flags().Changed("iterations") {
				iterations = cfg.Iterations
			}
			include, exclude := filtersFor(cmd)

			log := loggerFor(cmd)

			var genCmd GenerateCommander
			if o.generateCommander != nil {
				genCmd = o.generateCommander
			} else {
				genCmd = benchgen.NewDefaultGenerateCommand(log)
			}
			result, err := genCmd.Run(cmd.Context(), benchgen.GenerateOptions{
				TestCaseID:  testCase,
				CSVDir:      csvDir,
				ResultsFile: resultsFile,
				Iterations:  iterations,
				Options:     optsFor(cmd),
				Include:     include,
				Exclude:     exclude,
				OutputFile:  resolvePath(outputFile, cwd),
				Output:      cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}

			writeResult(cmd, result, benchgen.FormatOptions{
				Verbose:      verbosity >= 1,
				ColorEnabled: benchgen.IsColorEnabled(),
			})
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [pattern]",
		Short: "List test cases",
		Long: `List test cases, optionally only those whose id matches a glob pattern.

  benchgen list
  benchgen list 'literal_*'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			csvDir, err := csvDirFor(cmd)
			if err != nil {
				return err
			}
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}

			var listCmd ListCommander
			if o.listCommander != nil {
				listCmd = o.listCommander
			} else {
				listCmd = benchgen.NewDefaultListCommand(loggerFor(cmd))
			}
			result, err := listCmd.Run(cmd.Context(), benchgen.ListOptions{
				CSVDir:  csvDir,
				Pattern: pattern,
			})
			if err != nil {
				return err
			}

			writeFormatted(cmd, result.Format(benchgen.ListFormatOptions{Quiet: quiet}))
			return nil
		},
	}

	tablesCmd := &cobra.Command{
		Use:   "tables [table]...",
		Short: "Print the benchmark tables",
		Long: fmt.Sprintf(`Print base tables or the resolved result table.

Available tables: %s.
The result table is resolved with --opt, --include and --exclude.`, strings.Join(benchgen.TableNames, ", ")),
		ValidArgs: benchgen.TableNames,
		Args:      cobra.OnlyValidArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			include, exclude := filtersFor(cmd)
			if _, _, err := benchgen.CompileFilters(include, exclude); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			csvDir, err := csvDirFor(cmd)
			if err != nil {
				return err
			}
			include, exclude := filtersFor(cmd)

			var tablesCmd TablesCommander
			if o.tablesCommander != nil {
				tablesCmd = o.tablesCommander
			} else {
				tablesCmd = benchgen.NewDefaultTablesCommand(loggerFor(cmd))
			}
			result, err := tablesCmd.Run(cmd.Context(), benchgen.TablesOptions{
				CSVDir:  csvDir,
				Tables:  args,
				Options: optsFor(cmd),
				Include: include,
				Exclude: exclude,
			})
			if err != nil {
				return err
			}

			writeResult(cmd, result, benchgen.FormatOptions{
				ColorEnabled: benchgen.IsColorEnabled(),
			})
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the benchmark tables",
		Long: `Validate the benchmark tables and report programs that will be excluded,
options or file types some programs cannot express, missing executables
and missing corpora.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			quiet, _ := cmd.Flags().GetBool("quiet")

			csvDir, err := csvDirFor(cmd)
			if err != nil {
				return err
			}

			var checkCmd CheckCommander
			if o.checkCommander != nil {
				checkCmd = o.checkCommander
			} else {
				checkCmd = benchgen.NewDefaultCheckCommand(loggerFor(cmd))
			}
			result, err := checkCmd.Run(cmd.Context(), benchgen.CheckOptions{
				CSVDir:  csvDir,
				Options: optsFor(cmd),
			})
			if err != nil {
				return err
			}

			writeFormatted(cmd, result.Format(benchgen.CheckFormatOptions{
				Verbose:      verbosity >= 1,
				Quiet:        quiet,
				ColorEnabled: benchgen.IsColorEnabled(),
			}))
			if result.ErrorCount() > 0 {
				return fmt.Errorf("check found %d error(s)", result.ErrorCount())
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize benchgen configuration",
		Long:  `Create a .benchgen/settings.toml configuration file in the current directory.`,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Override parent's PersistentPreRunE to skip config loading
			// since init creates the config file
			originalCwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			cwd, err = resolveDirectory(dirFlag, originalCwd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			force, _ := cmd.Flags().GetBool("force")
			samples, _ := cmd.Flags().GetBool("samples")

			var initCmd InitCommander
			if o.initCommander != nil {
				initCmd = o.initCommander
			} else {
				initCmd = benchgen.NewDefaultInitCommand()
			}
			result, err := initCmd.Run(cmd.Context(), cwd, benchgen.InitOptions{
				Force:   force,
				Samples: samples,
			})
			if err != nil {
				return err
			}

			writeFormatted(cmd, result.Format(benchgen.InitFormatOptions{
				Verbose: verbosity >= 1,
			}))
			return nil
		},
	}

	// Register flags
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "directory", "C", "", "Run as if benchgen was started in <path>")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Enable verbose output (-v for verbose, -vv for debug)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Color output: auto, always, never")

	for _, c := range []*cobra.Command{generateCmd, listCmd, tablesCmd, checkCmd} {
		c.Flags().StringP("csv-dir", "d", "", "Directory with the source csv files (default: csv_dir from config)")
	}
	for _, c := range []*cobra.Command{generateCmd, tablesCmd, checkCmd} {
		c.Flags().StringArray("opt", nil, "Option to give the test programs, id or id=value (repeatable)")
	}
	for _, c := range []*cobra.Command{generateCmd, tablesCmd} {
		c.Flags().StringP("include", "i", "", "Only include programs whose id matches this regex (exclude wins)")
		c.Flags().StringP("exclude", "e", "", "Exclude programs whose id matches this regex")
	}

	generateCmd.Flags().StringP("test-case", "c", "", "The test case id to generate the script for")
	_ = generateCmd.MarkFlagRequired("test-case")
	generateCmd.Flags().StringP("test-output", "r", "", "Combined test results filename used by the script")
	generateCmd.Flags().StringP("output-file", "o", "", "Filename of the generated script (default: stdout)")
	generateCmd.Flags().IntP("iterations", "n", 0, fmt.Sprintf("Default number of timing runs (default: %d)", benchgen.DefaultIterations))
	_ = generateCmd.RegisterFlagCompletionFunc("test-case", completeTestCases)
	rootCmd.AddCommand(generateCmd)

	listCmd.Flags().BoolP("quiet", "q", false, "Output only test case ids")
	listCmd.ValidArgsFunction = completeTestCases
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(tablesCmd)

	checkCmd.Flags().BoolP("quiet", "q", false, "Only show errors")
	rootCmd.AddCommand(checkCmd)

	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing configuration")
	initCmd.Flags().Bool("samples", false, "Also write sample tables to benchmarks/")
	rootCmd.AddCommand(initCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "version:\t%s\n", version)
			fmt.Fprintf(w, "commit:\t%s\n", commit)
			fmt.Fprintf(w, "date:\t%s\n", date)
			w.Flush()
		},
	}
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var rootCmd = newRootCmd()

func main() {
	os.Exit(run())
}

func run() int {
	// CPU profiling support via environment variable
	if profFile := os.Getenv("BENCHGEN_CPUPROFILE"); profFile != "" {
		f, err := os.Create(profFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "benchgen: failed to create CPU profile: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "benchgen: failed to start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "benchgen:", err)
		return 1
	}
	return 0
}
