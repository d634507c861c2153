package benchgen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
)

// tableSource describes one CSV-backed base table.
type tableSource struct {
	table      string
	primaryKey string
}

// tableSources lists the base tables in load order.
var tableSources = []tableSource{
	{table: TableDialects},
	{table: TablePrograms, primaryKey: ColProgID},
	{table: TableTestCases, primaryKey: ColTestCaseID},
}

// CSVFileName returns the file name a base table is read from.
func CSVFileName(table string) string {
	return table + ".csv"
}

// LoadDir opens a store and loads the three base tables from CSV files in dir.
// On any failure the partially loaded store is closed and nil is returned.
// The caller owns the returned store and must Close it.
func LoadDir(fsys FileSystem, dir string, log *slog.Logger) (store *Store, err error) {
	store = NewStore(WithStoreLogger(log))
	defer func() {
		if err != nil {
			_ = store.Close()
			store = nil
		}
	}()

	if matches, globErr := fsys.Glob(dir, "*.csv"); globErr == nil {
		for _, m := range matches {
			if !slices.ContainsFunc(tableSources, func(ts tableSource) bool { return CSVFileName(ts.table) == m }) {
				log.Debug(fmt.Sprintf("ignoring %s", m), LogAttrKeyCategory.String(), LogCategoryStore)
			}
		}
	}

	for _, ts := range tableSources {
		path := filepath.Join(dir, CSVFileName(ts.table))
		header, rows, err := readCSVFile(fsys, path, ts.table)
		if err != nil {
			return nil, err
		}
		if err := CheckColumns(ts.table, header); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if err := store.Load(ts.table, rows, ts.primaryKey); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := store.Freeze(); err != nil {
		return nil, err
	}
	return store, nil
}

func readCSVFile(fsys FileSystem, path, table string) ([]string, []Row, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open table %s: %w", table, err)
	}
	defer func() { _ = f.Close() }()

	header, rows, err := ReadCSV(f, table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return header, rows, nil
}

// ReadCSV parses CSV records into rows keyed by the header line and
// returns the header as well. Whitespace after a delimiter is skipped and
// lines starting with '#' are comments. Every record must have as many
// fields as the header. Backslashes are ordinary characters.
func ReadCSV(r io.Reader, table string) (header []string, rows []Row, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err = cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &SchemaViolation{Table: table, Reason: "missing header row"}
		}
		return nil, nil, csvViolation(table, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			return nil, nil, &SchemaViolation{Table: table, Reason: fmt.Sprintf("empty column name at position %d", i+1)}
		}
		if slices.Contains(header[:i], header[i]) {
			return nil, nil, &SchemaViolation{Table: table, Field: header[i], Reason: "duplicate column"}
		}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, csvViolation(table, err)
		}
		row := make(Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func csvViolation(table string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &SchemaViolation{Table: table, Reason: fmt.Sprintf("line %d: %v", pe.Line, pe.Err)}
	}
	return &SchemaViolation{Table: table, Reason: err.Error()}
}
