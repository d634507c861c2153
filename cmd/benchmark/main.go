// Command benchmark times the benchgen CLI against synthetic benchmark
// tables of a chosen size.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Time benchgen over synthetic tables",
	Long: `Time benchgen over synthetic tables.

  benchmark setup <dir>     write tables only
  benchmark run <command>   write tables and time a benchgen command with hyperfine`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(setupCmd, runCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "benchmark:", err)
		os.Exit(1)
	}
}
