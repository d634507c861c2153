package benchgen

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Base table names, matching the CSV file stems.
const (
	TableDialects  = "opts_defs"
	TablePrograms  = "benchmark_progs"
	TableTestCases = "test_cases"
)

// Column names.
const (
	ColProgID               = "prog_id"
	ColOptID                = "opt_id"
	ColOptLangID            = "opt_lang_id"
	ColOptText              = "opt_text"
	ColExeName              = "exename"
	ColPreOptions           = "pre_options"
	ColOptExcludeDirLiteral = "opt_exclude_dir_literal"
	ColOptOnlyLangType      = "opt_only_lang_type"
	ColTestCaseID           = "test_case_id"
	ColDescLong             = "desc_long"
	ColFileType             = "file_type"
	ColRegex                = "regex"
	ColCorpus               = "corpus"

	// programOptPrefix marks program table columns that carry option text.
	programOptPrefix = "opt_"
)

// OptExcludeDirLiteral is the option id served by the opt_exclude_dir_literal column.
const OptExcludeDirLiteral = "exclude_dir_literal"

var requiredColumns = map[string][]string{
	TableDialects:  {ColOptID, ColOptLangID, ColOptText},
	TablePrograms:  {ColProgID, ColExeName, ColPreOptions, ColOptExcludeDirLiteral, ColOptOnlyLangType},
	TableTestCases: {ColTestCaseID, ColDescLong, ColFileType, ColRegex, ColCorpus},
}

// CheckColumns reports the first required column of table that columns
// lacks. It lets a header be validated even when the table has no rows.
func CheckColumns(table string, columns []string) error {
	required, ok := requiredColumns[table]
	if !ok {
		return &SchemaViolation{Table: table, Reason: "unknown table"}
	}
	for _, col := range required {
		if !slices.Contains(columns, col) {
			return &SchemaViolation{Table: table, Field: col, Reason: "missing column"}
		}
	}
	return nil
}

// Row is one field-named record of a base table.
type Row map[string]string

// DialectEntry maps a generic option (or file-type option) to one program's
// literal flag text. An empty ProgID means the entry is shared by all programs.
type DialectEntry struct {
	ProgID    string
	OptID     string
	OptLangID string
	OptText   string
}

// ProgramEntry is one competing search tool.
type ProgramEntry struct {
	ProgID               string
	ExeName              string
	PreOptions           string
	OptExcludeDirLiteral string
	OptOnlyLangType      string
	// Extra holds further opt_<id> columns keyed by <id>.
	Extra map[string]string
}

// OptionColumn returns the text of the program table's opt_<id> column.
func (p ProgramEntry) OptionColumn(optID string) (string, bool) {
	if optID == OptExcludeDirLiteral {
		return p.OptExcludeDirLiteral, true
	}
	text, ok := p.Extra[optID]
	return text, ok
}

// TestCaseEntry is one benchmark scenario.
type TestCaseEntry struct {
	TestCaseID string
	DescLong   string
	FileType   string
	Regex      string
	Corpus     string
}

type dialectKey struct {
	progID string
	optID  string
	langID string
}

// Store is an in-memory store of the three base tables.
// Tables are append-only while loading and read-only after Freeze.
// A Store is not safe for concurrent use.
type Store struct {
	log *slog.Logger

	dialects     []DialectEntry
	dialectIndex map[dialectKey]int
	optionIDs    map[dialectKey]bool // langID always empty

	programs     []ProgramEntry
	programIndex map[string]int

	testCases     []TestCaseEntry
	testCaseIndex map[string]int

	loaded map[string]bool
	frozen bool
	closed bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for load tracing.
func WithStoreLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		log:           NewNopLogger(),
		dialectIndex:  make(map[dialectKey]int),
		optionIDs:     make(map[dialectKey]bool),
		programIndex:  make(map[string]int),
		testCaseIndex: make(map[string]int),
		loaded:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load loads rows into the named table. If primaryKey is not empty that
// field must be present, non-empty and unique across the table.
func (s *Store) Load(table string, rows []Row, primaryKey string) error {
	if s.closed {
		return ErrStoreClosed
	}
	if s.frozen {
		return &SchemaViolation{Table: table, Reason: "store is frozen, tables are read-only"}
	}
	required, ok := requiredColumns[table]
	if !ok {
		return &SchemaViolation{Table: table, Reason: "unknown table"}
	}
	if s.loaded[table] {
		return &SchemaViolation{Table: table, Reason: "table already loaded"}
	}

	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		for _, col := range required {
			if _, ok := row[col]; !ok {
				return &SchemaViolation{Table: table, Row: i + 1, Field: col, Reason: "missing column"}
			}
		}
		if primaryKey == "" {
			continue
		}
		key, ok := row[primaryKey]
		if !ok || key == "" {
			return &SchemaViolation{Table: table, Row: i + 1, Field: primaryKey, Reason: "primary key is null"}
		}
		if prev, dup := seen[key]; dup {
			return &SchemaViolation{
				Table:  table,
				Row:    i + 1,
				Field:  primaryKey,
				Reason: fmt.Sprintf("duplicate primary key %q (first seen in row %d)", key, prev),
			}
		}
		seen[key] = i + 1
	}

	var err error
	switch table {
	case TableDialects:
		err = s.loadDialects(rows)
	case TablePrograms:
		err = s.loadPrograms(rows)
	case TableTestCases:
		err = s.loadTestCases(rows)
	}
	if err != nil {
		return err
	}

	s.loaded[table] = true
	s.log.Debug(fmt.Sprintf("loaded %d rows", len(rows)),
		LogAttrKeyCategory.Attr(LogCategoryStore), LogAttrKeyTable.Attr(table))
	return nil
}

func (s *Store) loadDialects(rows []Row) error {
	entries := make([]DialectEntry, 0, len(rows))
	index := make(map[dialectKey]int, len(rows))
	for i, row := range rows {
		e := DialectEntry{
			ProgID:    strings.TrimSpace(row[ColProgID]),
			OptID:     strings.TrimSpace(row[ColOptID]),
			OptLangID: strings.TrimSpace(row[ColOptLangID]),
			OptText:   row[ColOptText],
		}
		if e.OptID == "" {
			return &SchemaViolation{Table: TableDialects, Row: i + 1, Field: ColOptID, Reason: "empty option id"}
		}
		if err := checkShellWords(e.OptText); err != nil {
			return &SchemaViolation{Table: TableDialects, Row: i + 1, Field: ColOptText, Reason: err.Error()}
		}
		k := dialectKey{progID: e.ProgID, optID: e.OptID, langID: e.OptLangID}
		if prev, dup := index[k]; dup {
			return &SchemaViolation{
				Table:  TableDialects,
				Row:    i + 1,
				Reason: fmt.Sprintf("duplicate dialect key (%q, %q, %q) (first seen in row %d)", e.ProgID, e.OptID, e.OptLangID, prev+1),
			}
		}
		index[k] = i
		entries = append(entries, e)
	}

	for k, i := range index {
		s.dialectIndex[k] = i
		s.optionIDs[dialectKey{progID: k.progID, optID: k.optID}] = true
	}
	s.dialects = entries
	return nil
}

func (s *Store) loadPrograms(rows []Row) error {
	programs := make([]ProgramEntry, 0, len(rows))
	for i, row := range rows {
		p := ProgramEntry{
			ProgID:               strings.TrimSpace(row[ColProgID]),
			ExeName:              row[ColExeName],
			PreOptions:           row[ColPreOptions],
			OptExcludeDirLiteral: row[ColOptExcludeDirLiteral],
			OptOnlyLangType:      strings.TrimSpace(row[ColOptOnlyLangType]),
		}
		if p.ExeName == "" {
			return &SchemaViolation{Table: TablePrograms, Row: i + 1, Field: ColExeName, Reason: "empty executable name"}
		}
		if err := checkShellWords(p.PreOptions); err != nil {
			return &SchemaViolation{Table: TablePrograms, Row: i + 1, Field: ColPreOptions, Reason: err.Error()}
		}
		for col, v := range row {
			if !strings.HasPrefix(col, programOptPrefix) || col == ColOptExcludeDirLiteral || col == ColOptOnlyLangType {
				continue
			}
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[strings.TrimPrefix(col, programOptPrefix)] = v
		}
		programs = append(programs, p)
	}

	for i, p := range programs {
		if _, ok := s.programIndex[p.ProgID]; !ok {
			s.programIndex[p.ProgID] = i
		}
	}
	s.programs = programs
	return nil
}

func (s *Store) loadTestCases(rows []Row) error {
	testCases := make([]TestCaseEntry, 0, len(rows))
	for _, row := range rows {
		testCases = append(testCases, TestCaseEntry{
			TestCaseID: strings.TrimSpace(row[ColTestCaseID]),
			DescLong:   row[ColDescLong],
			FileType:   strings.TrimSpace(row[ColFileType]),
			Regex:      row[ColRegex],
			Corpus:     row[ColCorpus],
		})
	}

	for i, tc := range testCases {
		if _, ok := s.testCaseIndex[tc.TestCaseID]; !ok {
			s.testCaseIndex[tc.TestCaseID] = i
		}
	}
	s.testCases = testCases
	return nil
}

// Freeze validates cross-table references and makes the store read-only.
// All three tables must be loaded.
func (s *Store) Freeze() error {
	if s.closed {
		return ErrStoreClosed
	}
	for _, table := range []string{TableDialects, TablePrograms, TableTestCases} {
		if !s.loaded[table] {
			return &SchemaViolation{Table: table, Reason: "table not loaded"}
		}
	}
	for i, d := range s.dialects {
		if d.ProgID == "" {
			continue
		}
		if _, ok := s.programIndex[d.ProgID]; !ok {
			return &SchemaViolation{
				Table:  TableDialects,
				Row:    i + 1,
				Field:  ColProgID,
				Reason: fmt.Sprintf("unknown program %q", d.ProgID),
			}
		}
	}
	s.frozen = true
	return nil
}

// Close releases the tables. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.dialects = nil
	s.programs = nil
	s.testCases = nil
	clear(s.dialectIndex)
	clear(s.optionIDs)
	clear(s.programIndex)
	clear(s.testCaseIndex)
	return nil
}

// Dialects returns a copy of the dialect table.
func (s *Store) Dialects() []DialectEntry { return slices.Clone(s.dialects) }

// Programs returns a copy of the program table in load order.
func (s *Store) Programs() []ProgramEntry { return slices.Clone(s.programs) }

// TestCases returns a copy of the test case table in load order.
func (s *Store) TestCases() []TestCaseEntry { return slices.Clone(s.testCases) }

// Program returns the program with the given id.
func (s *Store) Program(progID string) (ProgramEntry, bool) {
	i, ok := s.programIndex[progID]
	if !ok {
		return ProgramEntry{}, false
	}
	return s.programs[i], true
}

// TestCase returns the test case with the given id.
func (s *Store) TestCase(testCaseID string) (TestCaseEntry, bool) {
	i, ok := s.testCaseIndex[testCaseID]
	if !ok {
		return TestCaseEntry{}, false
	}
	return s.testCases[i], true
}

// Dialect returns the dialect entry visible to progID for (optID, langID).
// A program-scoped entry takes precedence over a shared one.
func (s *Store) Dialect(progID, optID, langID string) (DialectEntry, bool) {
	if progID != "" {
		if i, ok := s.dialectIndex[dialectKey{progID: progID, optID: optID, langID: langID}]; ok {
			return s.dialects[i], true
		}
	}
	if i, ok := s.dialectIndex[dialectKey{optID: optID, langID: langID}]; ok {
		return s.dialects[i], true
	}
	return DialectEntry{}, false
}

// HasOption reports whether any dialect entry visible to progID has optID,
// under any file type.
func (s *Store) HasOption(progID, optID string) bool {
	return s.optionIDs[dialectKey{progID: progID, optID: optID}] ||
		s.optionIDs[dialectKey{optID: optID}]
}

// checkShellWords verifies that s splits into shell words.
func checkShellWords(s string) error {
	if _, err := shellquote.Split(s); err != nil {
		return fmt.Errorf("not valid shell words: %w", err)
	}
	return nil
}
