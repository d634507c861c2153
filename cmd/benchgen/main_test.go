package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/708u/benchgen"
)

func TestResolveDirectory(t *testing.T) {
	t.Parallel()

	t.Run("EmptyDirFlag", func(t *testing.T) {
		t.Parallel()

		baseCwd := "/some/path"
		got, err := resolveDirectory("", baseCwd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != baseCwd {
			t.Errorf("got %q, want %q", got, baseCwd)
		}
	})

	t.Run("NonexistentPath", func(t *testing.T) {
		t.Parallel()

		_, err := resolveDirectory("/nonexistent/path", t.TempDir())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "cannot change to '/nonexistent/path'") {
			t.Errorf("error %q should contain path", err.Error())
		}
	})

	t.Run("PathIsFile", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		filePath := filepath.Join(tmpDir, "file.txt")
		if err := os.WriteFile(filePath, []byte("content"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := resolveDirectory(filePath, tmpDir)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("error %q should contain 'not a directory'", err.Error())
		}
	})

	t.Run("ValidRelativePath", func(t *testing.T) {
		t.Parallel()

		baseCwd := t.TempDir()
		subDir := filepath.Join(baseCwd, "subdir")
		if err := os.Mkdir(subDir, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := resolveDirectory("subdir", baseCwd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want, _ := filepath.EvalSymlinks(subDir)
		gotResolved, _ := filepath.EvalSymlinks(got)
		if gotResolved != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		cwd  string
		want string
	}{
		{name: "empty", path: "", cwd: "/work", want: ""},
		{name: "absolute", path: "/abs/tables", cwd: "/work", want: "/abs/tables"},
		{name: "relative", path: "tables", cwd: "/work", want: "/work/tables"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolvePath(tt.path, tt.cwd); got != tt.want {
				t.Errorf("resolvePath(%q, %q) = %q, want %q", tt.path, tt.cwd, got, tt.want)
			}
		})
	}
}

func TestCreateLogger(t *testing.T) {
	t.Parallel()

	t.Run("NopBelowDebug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := createLogger(&buf, 1, func() string { return "abcd1234" })
		log.Debug("hidden", benchgen.LogAttrKeyCategory.String(), benchgen.LogCategoryDebug)

		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("DebugIncludesCommandID", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := createLogger(&buf, 2, func() string { return "abcd1234" })
		log.Debug("loading tables", benchgen.LogAttrKeyCategory.String(), benchgen.LogCategoryStore)

		got := buf.String()
		if !strings.Contains(got, "[abcd1234]") {
			t.Errorf("output should contain command id, got %q", got)
		}
		if !strings.Contains(got, "store: loading tables") {
			t.Errorf("output should contain category, got %q", got)
		}
	})
}

// mockGenerateCommander is a test double for GenerateCommander interface.
type mockGenerateCommander struct {
	called     bool
	calledOpts benchgen.GenerateOptions
	script     string
	result     benchgen.GenerateResult
	err        error
}

func (m *mockGenerateCommander) Run(ctx context.Context, opts benchgen.GenerateOptions) (benchgen.GenerateResult, error) {
	m.called = true
	m.calledOpts = opts
	if m.err != nil {
		return m.result, m.err
	}
	if opts.OutputFile == "" && opts.Output != nil {
		_, _ = opts.Output.Write([]byte(m.script))
	}
	return m.result, nil
}

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()

	cfgDir := filepath.Join(dir, ".benchgen")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "settings.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateCmd(t *testing.T) {
	t.Parallel()

	t.Run("FlagsArePassed", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		mock := &mockGenerateCommander{
			script: "#!/bin/sh\n",
			result: benchgen.GenerateResult{TestCaseID: "TC1", Programs: []string{"ucg"}},
		}

		cmd := newRootCmd(WithGenerateCommander(mock))
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{"-C", tmpDir, "generate",
			"-c", "TC1",
			"-d", "tables",
			"-r", "results.txt",
			"-n", "3",
			"--opt", "ignore_case",
			"--opt", "exclude_dir_literal=.git",
			"-i", "^u",
			"-e", "grep",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := mock.calledOpts
		if got.TestCaseID != "TC1" {
			t.Errorf("TestCaseID = %q, want %q", got.TestCaseID, "TC1")
		}
		if got.CSVDir != filepath.Join(tmpDir, "tables") {
			t.Errorf("CSVDir = %q, want %q", got.CSVDir, filepath.Join(tmpDir, "tables"))
		}
		if got.ResultsFile != "results.txt" {
			t.Errorf("ResultsFile = %q, want %q", got.ResultsFile, "results.txt")
		}
		if got.Iterations != 3 {
			t.Errorf("Iterations = %d, want 3", got.Iterations)
		}
		wantOpts := []string{"ignore_case", "exclude_dir_literal=.git"}
		if !slices.Equal(got.Options, wantOpts) {
			t.Errorf("Options = %v, want %v", got.Options, wantOpts)
		}
		if got.Include != "^u" || got.Exclude != "grep" {
			t.Errorf("Include/Exclude = %q/%q, want %q/%q", got.Include, got.Exclude, "^u", "grep")
		}
		if stdout.String() != "#!/bin/sh\n" {
			t.Errorf("stdout = %q, want the script", stdout.String())
		}
	})

	t.Run("ConfigDefaults", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeSettings(t, tmpDir, `csv_dir = "benchmarks"
results_file = "perf.txt"
iterations = 7
opts = ["ignore_case"]
exclude = "grep"
`)
		mock := &mockGenerateCommander{}

		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", tmpDir, "generate", "-c", "TC1"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := mock.calledOpts
		if got.CSVDir != filepath.Join(tmpDir, "benchmarks") {
			t.Errorf("CSVDir = %q, want %q", got.CSVDir, filepath.Join(tmpDir, "benchmarks"))
		}
		if got.ResultsFile != "perf.txt" {
			t.Errorf("ResultsFile = %q, want %q", got.ResultsFile, "perf.txt")
		}
		if got.Iterations != 7 {
			t.Errorf("Iterations = %d, want 7", got.Iterations)
		}
		if !slices.Equal(got.Options, []string{"ignore_case"}) {
			t.Errorf("Options = %v, want [ignore_case]", got.Options)
		}
		if got.Exclude != "grep" {
			t.Errorf("Exclude = %q, want %q", got.Exclude, "grep")
		}
	})

	t.Run("FlagsOverrideConfig", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeSettings(t, tmpDir, `csv_dir = "benchmarks"
results_file = "perf.txt"
opts = ["ignore_case"]
`)
		mock := &mockGenerateCommander{}

		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", tmpDir, "generate", "-c", "TC1",
			"-d", "/abs/tables", "-r", "other.txt", "--opt", "exclude_dir_literal=.svn"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := mock.calledOpts
		if got.CSVDir != "/abs/tables" {
			t.Errorf("CSVDir = %q, want %q", got.CSVDir, "/abs/tables")
		}
		if got.ResultsFile != "other.txt" {
			t.Errorf("ResultsFile = %q, want %q", got.ResultsFile, "other.txt")
		}
		if !slices.Equal(got.Options, []string{"exclude_dir_literal=.svn"}) {
			t.Errorf("Options = %v, want [exclude_dir_literal=.svn]", got.Options)
		}
	})

	t.Run("OutputFileIsResolved", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		mock := &mockGenerateCommander{}

		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", tmpDir, "generate", "-c", "TC1", "-d", "/t", "-r", "r.txt", "-o", "TC1.sh"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mock.calledOpts.OutputFile != filepath.Join(tmpDir, "TC1.sh") {
			t.Errorf("OutputFile = %q, want %q", mock.calledOpts.OutputFile, filepath.Join(tmpDir, "TC1.sh"))
		}
	})

	t.Run("MissingTestCase", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{}
		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "generate", "-d", "/t", "-r", "r.txt"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error, got nil")
		}
		if mock.called {
			t.Error("commander should not be called")
		}
	})

	t.Run("MissingCSVDir", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{}
		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "generate", "-c", "TC1", "-r", "r.txt"})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "no csv directory") {
			t.Errorf("error = %q, want it to mention the csv directory", err.Error())
		}
		if mock.called {
			t.Error("commander should not be called")
		}
	})

	t.Run("MissingResultsFile", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{}
		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "generate", "-c", "TC1", "-d", "/t"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error, got nil")
		}
		if mock.called {
			t.Error("commander should not be called")
		}
	})

	t.Run("ConflictingFilters", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{}
		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "generate", "-c", "TC1", "-d", "/t", "-r", "r.txt",
			"-i", "grep", "-e", "grep"})

		err := cmd.Execute()
		if !errors.Is(err, benchgen.ErrConflictingFilters) {
			t.Fatalf("err = %v, want ErrConflictingFilters", err)
		}
		if mock.called {
			t.Error("commander should not be called")
		}
	})

	t.Run("ExcludedProgramWarning", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{
			result: benchgen.GenerateResult{TestCaseID: "TC1", Excluded: []string{"broken"}},
		}
		cmd := newRootCmd(WithGenerateCommander(mock))
		var stderr bytes.Buffer
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&stderr)
		cmd.SetArgs([]string{"-C", t.TempDir(), "--color", "never", "generate", "-c", "TC1", "-d", "/t", "-r", "r.txt"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr.String(), `program "broken" excluded`) {
			t.Errorf("stderr = %q, want exclusion warning", stderr.String())
		}
	})

	t.Run("CommanderError", func(t *testing.T) {
		t.Parallel()

		mock := &mockGenerateCommander{err: &benchgen.UnknownTestCase{TestCaseID: "TC9"}}
		cmd := newRootCmd(WithGenerateCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "generate", "-c", "TC9", "-d", "/t", "-r", "r.txt"})

		err := cmd.Execute()
		if !errors.Is(err, benchgen.ErrUnknownTestCase) {
			t.Fatalf("err = %v, want ErrUnknownTestCase", err)
		}
	})
}

// mockListCommander is a test double for ListCommander interface.
type mockListCommander struct {
	calledOpts benchgen.ListOptions
	result     benchgen.ListResult
	err        error
}

func (m *mockListCommander) Run(ctx context.Context, opts benchgen.ListOptions) (benchgen.ListResult, error) {
	m.calledOpts = opts
	return m.result, m.err
}

func TestListCmd(t *testing.T) {
	t.Parallel()

	testCases := []benchgen.TestCaseEntry{
		{TestCaseID: "TC1", DescLong: "Literal search", FileType: "cpp"},
		{TestCaseID: "TC22", DescLong: "Regex search", FileType: "py"},
	}

	tests := []struct {
		name        string
		args        []string
		result      benchgen.ListResult
		err         error
		wantStdout  string
		wantPattern string
		wantErr     bool
	}{
		{
			name:       "default output",
			args:       []string{"list"},
			result:     benchgen.ListResult{TestCases: testCases},
			wantStdout: "TC1   cpp  Literal search\nTC22  py   Regex search\n",
		},
		{
			name:       "quiet flag outputs ids only",
			args:       []string{"list", "--quiet"},
			result:     benchgen.ListResult{TestCases: testCases},
			wantStdout: "TC1\nTC22\n",
		},
		{
			name:        "pattern argument",
			args:        []string{"list", "-q", "TC2*"},
			result:      benchgen.ListResult{TestCases: testCases[1:]},
			wantStdout:  "TC22\n",
			wantPattern: "TC2*",
		},
		{
			name:       "empty list",
			args:       []string{"list"},
			wantStdout: "",
		},
		{
			name:    "error from commander",
			args:    []string{"list"},
			err:     errors.New("load error"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := &mockListCommander{result: tt.result, err: tt.err}

			cmd := newRootCmd(WithListCommander(mock))

			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			cmd.SetOut(stdout)
			cmd.SetErr(stderr)
			cmd.SetArgs(append([]string{"-C", t.TempDir()}, append(tt.args, "-d", "/tables")...))

			err := cmd.Execute()

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if stdout.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if mock.calledOpts.Pattern != tt.wantPattern {
				t.Errorf("Pattern = %q, want %q", mock.calledOpts.Pattern, tt.wantPattern)
			}
		})
	}
}

// mockTablesCommander is a test double for TablesCommander interface.
type mockTablesCommander struct {
	calledOpts benchgen.TablesOptions
	result     benchgen.TablesResult
	err        error
}

func (m *mockTablesCommander) Run(ctx context.Context, opts benchgen.TablesOptions) (benchgen.TablesResult, error) {
	m.calledOpts = opts
	return m.result, m.err
}

func TestTablesCmd(t *testing.T) {
	t.Parallel()

	t.Run("PassesTableNames", func(t *testing.T) {
		t.Parallel()

		mock := &mockTablesCommander{
			result: benchgen.TablesResult{Tables: []benchgen.Table{
				{Name: "test_cases", Header: []string{"test_case_id"}, Rows: [][]string{{"TC1"}}},
			}},
		}
		cmd := newRootCmd(WithTablesCommander(mock))
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "--color", "never", "tables", "-d", "/t", "test_cases", "result", "--opt", "ignore_case"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(mock.calledOpts.Tables, []string{"test_cases", "result"}) {
			t.Errorf("Tables = %v", mock.calledOpts.Tables)
		}
		if !slices.Equal(mock.calledOpts.Options, []string{"ignore_case"}) {
			t.Errorf("Options = %v", mock.calledOpts.Options)
		}
		want := "test_cases (1 rows)\n  test_case_id\n  TC1\n"
		if stdout.String() != want {
			t.Errorf("stdout = %q, want %q", stdout.String(), want)
		}
	})

	t.Run("UnknownTable", func(t *testing.T) {
		t.Parallel()

		mock := &mockTablesCommander{}
		cmd := newRootCmd(WithTablesCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "tables", "-d", "/t", "nope"})

		if err := cmd.Execute(); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

// mockCheckCommander is a test double for CheckCommander interface.
type mockCheckCommander struct {
	result benchgen.CheckResult
	err    error
}

func (m *mockCheckCommander) Run(ctx context.Context, opts benchgen.CheckOptions) (benchgen.CheckResult, error) {
	return m.result, m.err
}

func TestCheckCmd(t *testing.T) {
	t.Parallel()

	t.Run("ErrorsFailTheCommand", func(t *testing.T) {
		t.Parallel()

		mock := &mockCheckCommander{result: benchgen.CheckResult{Items: []benchgen.CheckItem{
			{Category: benchgen.CategoryTables, Severity: benchgen.SeverityError, Message: "missing column"},
		}}}
		cmd := newRootCmd(WithCheckCommander(mock))
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "--color", "never", "check", "-d", "/t", "-q"})

		err := cmd.Execute()
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if stdout.String() != "[error] missing column\n" {
			t.Errorf("stdout = %q", stdout.String())
		}
	})

	t.Run("WarningsPass", func(t *testing.T) {
		t.Parallel()

		mock := &mockCheckCommander{result: benchgen.CheckResult{Items: []benchgen.CheckItem{
			{Category: benchgen.CategoryPrograms, Severity: benchgen.SeverityWarn, Message: "program excluded"},
		}}}
		cmd := newRootCmd(WithCheckCommander(mock))
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", t.TempDir(), "--color", "never", "check", "-d", "/t"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), "Summary: 0 errors, 1 warnings, 0 info") {
			t.Errorf("stdout = %q", stdout.String())
		}
	})
}

// mockInitCommander is a test double for InitCommander interface.
type mockInitCommander struct {
	calledDir  string
	calledOpts benchgen.InitOptions
	result     benchgen.InitResult
	err        error
}

func (m *mockInitCommander) Run(ctx context.Context, dir string, opts benchgen.InitOptions) (benchgen.InitResult, error) {
	m.calledDir = dir
	m.calledOpts = opts
	return m.result, m.err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		wantForce   bool
		wantSamples bool
	}{
		{name: "BasicExecution", args: []string{"init"}},
		{name: "ForceFlag", args: []string{"init", "--force"}, wantForce: true},
		{name: "ForceShortFlag", args: []string{"init", "-f"}, wantForce: true},
		{name: "SamplesFlag", args: []string{"init", "--samples"}, wantSamples: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()
			mock := &mockInitCommander{result: benchgen.InitResult{Created: true}}

			cmd := newRootCmd(WithInitCommander(mock))
			var stdout bytes.Buffer
			cmd.SetOut(&stdout)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"-C", tmpDir}, tt.args...))

			if err := cmd.Execute(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if mock.calledOpts.Force != tt.wantForce {
				t.Errorf("Force = %v, want %v", mock.calledOpts.Force, tt.wantForce)
			}
			if mock.calledOpts.Samples != tt.wantSamples {
				t.Errorf("Samples = %v, want %v", mock.calledOpts.Samples, tt.wantSamples)
			}
			if mock.calledDir == "" {
				t.Error("expected init to receive the directory")
			}
			if !strings.Contains(stdout.String(), "Created") {
				t.Errorf("stdout = %q, want Created", stdout.String())
			}
		})
	}

	t.Run("SkipsBrokenConfig", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		writeSettings(t, tmpDir, "csv_dir = [")
		mock := &mockInitCommander{result: benchgen.InitResult{Skipped: true}}

		cmd := newRootCmd(WithInitCommander(mock))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"-C", tmpDir, "init"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init should not load config: %v", err)
		}
	})
}
