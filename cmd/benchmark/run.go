package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

const benchBase = "/tmp/benchgen-bench"

type scale struct {
	programs  int
	testCases int
	fileTypes int
}

type benchOpts struct {
	scale          scale
	outputDir      string
	warmup         int
	runs           int
	exportJSON     string
	exportMarkdown string
}

var scales = map[string]scale{
	"small":  {5, 50, 5},
	"medium": {20, 500, 20},
	"large":  {50, 5000, 50},
}

// Shared flags for all run subcommands
var (
	runScale          string
	runPrograms       int
	runTestCases      int
	runFileTypes      int
	runWarmup         int
	runRuns           int
	runOutputDir      string
	runKeep           bool
	runExportJSON     string
	runExportMarkdown string
	runBenchgenBin    string // benchgen binary path flag
	benchgenBin       string // resolved benchgen binary path
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run benchmarks using hyperfine",
	Long: `Run benchgen benchmarks using hyperfine.

Use subcommands to run specific benchmarks:
  benchmark run generate
  benchmark run list
  benchmark run tables
  benchmark run check
  benchmark run all

Scale presets (--scale):
  small       5 programs, 50 test cases, 5 file types (default)
  medium      20 programs, 500 test cases, 20 file types
  large       50 programs, 5000 test cases, 50 file types

Use --scale-programs, --scale-test-cases, --scale-file-types to override preset values.`,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Benchmark benchgen generate",
	Args:  cobra.NoArgs,
	RunE:  runBenchmark(benchGenerate),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Benchmark benchgen list",
	Args:  cobra.NoArgs,
	RunE:  runBenchmark(benchList),
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Benchmark benchgen tables result",
	Args:  cobra.NoArgs,
	RunE:  runBenchmark(benchTables),
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Benchmark benchgen check",
	Args:  cobra.NoArgs,
	RunE:  runBenchmark(benchCheck),
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run all benchmarks",
	Args:  cobra.NoArgs,
	RunE:  runBenchmark(benchAll),
}

// runBenchmark returns a RunE function that sets up the tables once and
// executes the given benchmark against them.
func runBenchmark(bench func(*benchOpts) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, ok := scales[runScale]
		if !ok {
			return fmt.Errorf("unknown scale '%s' (available: small, medium, large)", runScale)
		}

		if runPrograms > 0 {
			s.programs = runPrograms
		}
		if runTestCases > 0 {
			s.testCases = runTestCases
		}
		if runFileTypes > 0 {
			s.fileTypes = runFileTypes
		}

		outputDir := runOutputDir
		if outputDir == "" {
			outputDir = benchBase
		}

		if err := checkDeps(); err != nil {
			return err
		}

		if err := setupTables(outputDir, s.programs, s.testCases, s.fileTypes); err != nil {
			return err
		}

		if !runKeep {
			defer func() {
				fmt.Println("\nCleaning up benchmark directory...")
				_ = os.RemoveAll(outputDir)
			}()
		}

		opts := &benchOpts{
			scale:          s,
			outputDir:      outputDir,
			warmup:         runWarmup,
			runs:           runRuns,
			exportJSON:     runExportJSON,
			exportMarkdown: runExportMarkdown,
		}

		return bench(opts)
	}
}

func checkDeps() error {
	if _, err := exec.LookPath("hyperfine"); err != nil {
		return fmt.Errorf("hyperfine is required but not installed\n  Install with: brew install hyperfine")
	}

	if runBenchgenBin == "" {
		path, err := exec.LookPath("benchgen")
		if err != nil {
			return fmt.Errorf("benchgen is required but not installed\n  Install with: go install github.com/708u/benchgen/cmd/benchgen@latest")
		}
		benchgenBin = path
		return nil
	}

	if _, err := os.Stat(runBenchgenBin); err != nil {
		return fmt.Errorf("benchgen binary not found: %s", runBenchgenBin)
	}
	benchgenBin = runBenchgenBin
	return nil
}

// benchgenCommand builds a shell command line running benchgen in dir.
func (o *benchOpts) benchgenCommand(args ...string) string {
	return shellquote.Join(append([]string{benchgenBin, "-C", o.outputDir}, args...)...)
}

func benchGenerate(opts *benchOpts) error {
	fmt.Println("\n=== Benchmark: benchgen generate ===")

	scriptPath := filepath.Join(opts.outputDir, "bench.sh")
	args := opts.hyperfineArgs(3, 20)
	args = append(args, opts.benchgenCommand("generate",
		"-c", testCaseID(opts.scale.testCases/2),
		"-o", scriptPath,
	))

	return runHyperfine(args...)
}

func benchList(opts *benchOpts) error {
	fmt.Println("\n=== Benchmark: benchgen list ===")

	args := opts.hyperfineArgs(3, 20)
	args = append(args, opts.benchgenCommand("list", "-q")+" >/dev/null")

	return runHyperfine(args...)
}

func benchTables(opts *benchOpts) error {
	fmt.Println("\n=== Benchmark: benchgen tables result ===")

	args := opts.hyperfineArgs(1, 10)
	args = append(args, opts.benchgenCommand("tables", "result")+" >/dev/null")

	return runHyperfine(args...)
}

func benchCheck(opts *benchOpts) error {
	fmt.Println("\n=== Benchmark: benchgen check ===")

	// The synthetic tables reference a missing dialect option, so check
	// reports errors and exits non-zero.
	args := opts.hyperfineArgs(1, 10)
	args = append(args, "--ignore-failure", opts.benchgenCommand("check", "-q"))

	return runHyperfine(args...)
}

func benchAll(opts *benchOpts) error {
	benchmarks := []func(*benchOpts) error{benchGenerate, benchList, benchTables, benchCheck}
	for _, bench := range benchmarks {
		if err := bench(opts); err != nil {
			return err
		}
	}
	fmt.Println("\nAll benchmarks completed.")
	return nil
}

func (o *benchOpts) hyperfineArgs(defaultWarmup, defaultRuns int) []string {
	warmup := defaultWarmup
	if o.warmup > 0 {
		warmup = o.warmup
	}

	runs := defaultRuns
	if o.runs > 0 {
		runs = o.runs
	}

	args := []string{
		"--warmup", fmt.Sprintf("%d", warmup),
		"--runs", fmt.Sprintf("%d", runs),
	}

	if o.exportJSON != "" {
		args = append(args, "--export-json", o.exportJSON)
	}
	if o.exportMarkdown != "" {
		args = append(args, "--export-markdown", o.exportMarkdown)
	}

	return args
}

func runHyperfine(args ...string) error {
	cmd := exec.Command("hyperfine", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func init() {
	// Register shared flags on parent command
	runCmd.PersistentFlags().StringVar(&runScale, "scale", "small", "Scale preset (small, medium, large)")
	runCmd.PersistentFlags().IntVar(&runPrograms, "scale-programs", 0, "Override number of programs")
	runCmd.PersistentFlags().IntVar(&runTestCases, "scale-test-cases", 0, "Override number of test cases")
	runCmd.PersistentFlags().IntVar(&runFileTypes, "scale-file-types", 0, "Override number of file types")
	runCmd.PersistentFlags().IntVar(&runWarmup, "warmup", 0, "Number of warmup runs (0 = use benchmark default)")
	runCmd.PersistentFlags().IntVar(&runRuns, "runs", 0, "Number of benchmark runs (0 = use benchmark default)")
	runCmd.PersistentFlags().StringVar(&runOutputDir, "output-dir", "", "Output directory for benchmark tables (default: /tmp/benchgen-bench)")
	runCmd.PersistentFlags().BoolVar(&runKeep, "keep", false, "Keep benchmark directory after completion")
	runCmd.PersistentFlags().StringVar(&runExportJSON, "export-json", "", "Export results to JSON file")
	runCmd.PersistentFlags().StringVar(&runExportMarkdown, "export-markdown", "", "Export results to Markdown file")
	runCmd.PersistentFlags().StringVar(&runBenchgenBin, "benchgen-bin", "", "Path to benchgen binary (default: use from PATH)")

	// Register subcommands
	runCmd.AddCommand(generateCmd)
	runCmd.AddCommand(listCmd)
	runCmd.AddCommand(tablesCmd)
	runCmd.AddCommand(checkCmd)
	runCmd.AddCommand(allCmd)
}
