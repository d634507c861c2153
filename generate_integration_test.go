//go:build integration

package benchgen

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/708u/benchgen/internal/testutil"
)

func generateScript(t *testing.T, tb testutil.Tables, testCaseID string, opts ...string) string {
	t.Helper()

	csvDir := testutil.WriteTables(t, tb)
	scriptPath := filepath.Join(t.TempDir(), testCaseID+".sh")

	_, err := NewDefaultGenerateCommand(nil).Run(t.Context(), GenerateOptions{
		TestCaseID:  testCaseID,
		CSVDir:      csvDir,
		ResultsFile: "results.txt",
		Options:     opts,
		OutputFile:  scriptPath,
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return scriptPath
}

func TestGenerateCommand_Integration(t *testing.T) {
	t.Parallel()

	t.Run("ScriptIsValidShell", func(t *testing.T) {
		t.Parallel()

		scriptPath := generateScript(t, testutil.Minimal, "TC2", "ignore_case", "exclude_dir_literal=.git")

		out, err := exec.Command("sh", "-n", scriptPath).CombinedOutput()
		if err != nil {
			t.Fatalf("sh -n failed: %v\n%s", err, out)
		}

		info, err := os.Stat(scriptPath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm()&0100 == 0 {
			t.Errorf("script mode = %v, want executable", info.Mode())
		}
	})

	t.Run("ShouldSkipMode", func(t *testing.T) {
		t.Parallel()

		corpus := t.TempDir()
		tb := testutil.Minimal
		tb.TestCases = "test_case_id,desc_long,file_type,regex,corpus\n" +
			"present,Corpus present,cpp,BOOST," + corpus + "\n" +
			"missing,Corpus missing,cpp,BOOST," + filepath.Join(corpus, "nope") + "\n"

		tests := []struct {
			testCaseID string
			wantExit   int
			wantOutput string
		}{
			{testCaseID: "present", wantExit: 1, wantOutput: "Found test corpus"},
			{testCaseID: "missing", wantExit: 0, wantOutput: "No test corpus"},
		}

		for _, tt := range tests {
			scriptPath := generateScript(t, tb, tt.testCaseID)

			out, err := exec.Command("sh", scriptPath, "-s").CombinedOutput()
			exit := 0
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exit = exitErr.ExitCode()
			} else if err != nil {
				t.Fatalf("%s: %v", tt.testCaseID, err)
			}

			if exit != tt.wantExit {
				t.Errorf("%s: exit = %d, want %d", tt.testCaseID, exit, tt.wantExit)
			}
			if !strings.Contains(string(out), tt.wantOutput) {
				t.Errorf("%s: output = %q, want %q", tt.testCaseID, out, tt.wantOutput)
			}
		}
	})
}
