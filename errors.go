package benchgen

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below wrap them so callers can use errors.Is.
var (
	ErrSchemaViolation    = errors.New("schema violation")
	ErrUnknownTestCase    = errors.New("unknown test case")
	ErrConflictingFilters = errors.New("include and exclude pattern are equal, nothing will be processed")
	ErrStoreClosed        = errors.New("store is closed")
)

// SchemaViolation reports a malformed or duplicate-keyed input table.
type SchemaViolation struct {
	Table  string
	Row    int // 1-based data row, 0 when not row specific
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("table %s: row %d: field %q: %s", e.Table, e.Row, e.Field, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("table %s: row %d: %s", e.Table, e.Row, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("table %s: field %q: %s", e.Table, e.Field, e.Reason)
	default:
		return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
	}
}

func (e *SchemaViolation) Unwrap() error { return ErrSchemaViolation }

// UnknownTestCase is returned when a test case id selects no resolved rows.
type UnknownTestCase struct {
	TestCaseID string
}

func (e *UnknownTestCase) Error() string {
	return fmt.Sprintf("test case %q matches no benchmark rows", e.TestCaseID)
}

func (e *UnknownTestCase) Unwrap() error { return ErrUnknownTestCase }
