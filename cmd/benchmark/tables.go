package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/708u/benchgen"
)

func setupTables(outputDir string, numPrograms, numTestCases, numFileTypes int) error {
	if numPrograms < 1 || numTestCases < 1 || numFileTypes < 1 {
		return fmt.Errorf("programs, test cases and file types must be positive")
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}

	csvDir := filepath.Join(outputDir, "benchmarks")
	if err := os.MkdirAll(csvDir, 0o755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	fmt.Printf("Setting up benchmark tables in %s\n", outputDir)
	fmt.Printf("  Programs: %d, Test cases: %d, File types: %d\n", numPrograms, numTestCases, numFileTypes)

	if err := writeTable(csvDir, benchgen.TableDialects, dialectRecords(numPrograms, numFileTypes)); err != nil {
		return err
	}
	if err := writeTable(csvDir, benchgen.TablePrograms, programRecords(numPrograms)); err != nil {
		return err
	}
	if err := writeTable(csvDir, benchgen.TableTestCases, testCaseRecords(numTestCases, numFileTypes)); err != nil {
		return err
	}

	if err := createBenchgenConfig(outputDir); err != nil {
		return fmt.Errorf("failed to create benchgen config: %w", err)
	}

	fmt.Printf("Benchmark tables ready at %s\n", csvDir)
	return nil
}

func programID(i int) string  { return fmt.Sprintf("prog%03d", i) }
func fileType(i int) string   { return fmt.Sprintf("ft%02d", i) }
func testCaseID(i int) string { return fmt.Sprintf("tc%05d", i) }

// dialectRecords maps every program to every file type, except that each
// program's own ignore_case entry exists only for odd programs.
func dialectRecords(numPrograms, numFileTypes int) [][]string {
	records := [][]string{
		{benchgen.ColProgID, benchgen.ColOptID, benchgen.ColOptLangID, benchgen.ColOptText},
		{"", "ignore_case", "", "-i"},
	}
	for p := range numPrograms {
		progID := programID(p)
		for f := range numFileTypes {
			records = append(records, []string{"", "t_" + progID, fileType(f), "--type=" + fileType(f)})
		}
		if p%2 == 1 {
			records = append(records, []string{progID, "ignore_case", "", "--ignore-case"})
		}
	}
	return records
}

// programRecords creates the programs. Every tenth program references a
// missing dialect option and is excluded from generated scripts.
func programRecords(numPrograms int) [][]string {
	records := [][]string{{
		benchgen.ColProgID, benchgen.ColExeName, benchgen.ColPreOptions,
		benchgen.ColOptExcludeDirLiteral, benchgen.ColOptOnlyLangType,
	}}
	for p := range numPrograms {
		progID := programID(p)
		langType := "t_" + progID
		if p%10 == 9 {
			langType = "t_missing"
		}
		records = append(records, []string{progID, "grep", "-rn --color=never", "--exclude-dir=", langType})
	}
	return records
}

func testCaseRecords(numTestCases, numFileTypes int) [][]string {
	records := [][]string{{
		benchgen.ColTestCaseID, benchgen.ColDescLong, benchgen.ColFileType, benchgen.ColRegex, benchgen.ColCorpus,
	}}
	for i := range numTestCases {
		ft := fileType(i % numFileTypes)
		records = append(records, []string{
			testCaseID(i),
			fmt.Sprintf("Synthetic test case %d, %s files", i, ft),
			ft,
			fmt.Sprintf(`\bident_%d\w*`, i),
			"/tmp/benchgen-corpus/" + ft,
		})
	}
	return records
}

func writeTable(dir, table string, records [][]string) error {
	path := filepath.Join(dir, benchgen.CSVFileName(table))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("  %s: %d rows\n", filepath.Base(path), len(records)-1)
	return nil
}

func createBenchgenConfig(outputDir string) error {
	cfgDir := filepath.Join(outputDir, ".benchgen")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return err
	}
	settings := `csv_dir = "benchmarks"
results_file = "perf_test_results.txt"
opts = ["ignore_case", "exclude_dir_literal=.git"]
`
	return os.WriteFile(filepath.Join(cfgDir, "settings.toml"), []byte(settings), 0o644)
}
