package main

import "github.com/spf13/cobra"

var (
	setupPrograms  int
	setupTestCases int
	setupFileTypes int
)

var setupCmd = &cobra.Command{
	Use:   "setup <output-dir>",
	Short: "Generate benchmark tables",
	Long: `Generate synthetic benchmark tables for benchgen CLI performance testing.

Examples:
  benchmark setup --programs=5 --test-cases=50 /tmp/bench-small
  benchmark setup --programs=50 --test-cases=5000 --file-types=50 /tmp/bench-large`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setupTables(args[0], setupPrograms, setupTestCases, setupFileTypes)
	},
}

func init() {
	setupCmd.Flags().IntVar(&setupPrograms, "programs", 5, "Number of programs to generate")
	setupCmd.Flags().IntVar(&setupTestCases, "test-cases", 50, "Number of test cases to generate")
	setupCmd.Flags().IntVar(&setupFileTypes, "file-types", 5, "Number of file types to generate")
}
