package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TablesDir is the directory NewTablesFS places the CSV files in.
const TablesDir = "/tables"

// Tables holds the CSV text of the three benchmark tables.
type Tables struct {
	Dialects  string
	Programs  string
	TestCases string
}

// Minimal is a small, valid set of tables: two programs with file type
// flags for cpp, one program with a dangling dialect reference, and two
// test cases.
var Minimal = Tables{
	Dialects: `prog_id,opt_id,opt_lang_id,opt_text
,t_ucg,cpp,--cpp
,t_rg,cpp,-tcpp
,t_rg,py,-tpy
,ignore_case,,-i
`,
	Programs: `prog_id,exename,pre_options,opt_exclude_dir_literal,opt_only_lang_type
ucg,ucg,--noenv,--exclude-dir=,t_ucg
rg,rg,-Hn,,t_rg
broken,broken,,,t_missing
`,
	TestCases: `test_case_id,desc_long,file_type,regex,corpus
TC1,"Literal search, C++",cpp,BOOST,/data/boost
TC2,Python identifiers,py,"\bfoo_\w+",/data/python
`,
}

func (tb Tables) files(dir string) map[string]string {
	return map[string]string{
		filepath.Join(dir, "opts_defs.csv"):       tb.Dialects,
		filepath.Join(dir, "benchmark_progs.csv"): tb.Programs,
		filepath.Join(dir, "test_cases.csv"):      tb.TestCases,
	}
}

// NewTablesFS returns a MockFS serving tb under TablesDir.
func NewTablesFS(tb Tables) *MockFS {
	return &MockFS{
		Files:        tb.files(TablesDir),
		WrittenFiles: make(map[string][]byte),
	}
}

// WriteTables writes tb as CSV files into a temporary directory and
// returns the directory.
func WriteTables(t *testing.T, tb Tables) string {
	t.Helper()

	dir := t.TempDir()
	for path, content := range tb.files(dir) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
