package benchgen

import (
	"fmt"
	"log/slog"
	"regexp"
)

// ResolvedInvocation is one program's concrete invocation for one test case.
type ResolvedInvocation struct {
	TestCaseID   string
	DescLong     string
	ProgID       string
	ExeName      string
	PreOptions   string
	OtherOptions string
	OptFiletype  string
	Regex        string
	Corpus       string
}

// MaterializeOptions configures Materialize.
type MaterializeOptions struct {
	// Include keeps only programs whose id matches. Nil keeps all.
	Include *regexp.Regexp
	// Exclude drops programs whose id matches. It wins over Include.
	Exclude *regexp.Regexp
	Log     *slog.Logger
}

// Materialized is the flat result set of one Materialize call.
type Materialized struct {
	Rows        []ResolvedInvocation
	Excluded    []string // programs dropped by an unresolved dialect reference
	Filtered    []string // programs dropped by include/exclude
	Diagnostics []Diagnostic
}

// Materialize joins programs and test cases into resolved invocations.
// Rows are grouped by test case in table order, programs in table order
// within each group. Programs with an unresolved dialect reference
// contribute no rows.
func Materialize(store *Store, requested []OptionRequest, opts MaterializeOptions) Materialized {
	log := opts.Log
	if log == nil {
		log = NewNopLogger()
	}
	resolver := NewResolver(store, log)
	otherOptions := resolver.ResolveOptions(requested)

	var result Materialized
	var programs []ProgramEntry
	for _, p := range store.Programs() {
		if !programSelected(p.ProgID, opts) {
			result.Filtered = append(result.Filtered, p.ProgID)
			continue
		}
		if !resolver.HasValidReference(p) {
			result.Excluded = append(result.Excluded, p.ProgID)
			continue
		}
		programs = append(programs, p)
	}

	for _, tc := range store.TestCases() {
		for _, p := range programs {
			result.Rows = append(result.Rows, ResolvedInvocation{
				TestCaseID:   tc.TestCaseID,
				DescLong:     tc.DescLong,
				ProgID:       p.ProgID,
				ExeName:      p.ExeName,
				PreOptions:   p.PreOptions,
				OtherOptions: otherOptions[p.ProgID],
				OptFiletype:  resolver.ResolveFiletype(p.ProgID, tc.FileType),
				Regex:        tc.Regex,
				Corpus:       tc.Corpus,
			})
		}
	}

	result.Diagnostics = resolver.Diagnostics()
	log.Debug(fmt.Sprintf("materialized %d rows (%d programs, %d excluded, %d filtered)",
		len(result.Rows), len(programs), len(result.Excluded), len(result.Filtered)),
		LogAttrKeyCategory.String(), LogCategoryMaterialize)
	return result
}

func programSelected(progID string, opts MaterializeOptions) bool {
	if opts.Exclude != nil && opts.Exclude.MatchString(progID) {
		return false
	}
	if opts.Include != nil && !opts.Include.MatchString(progID) {
		return false
	}
	return true
}

// ForTestCase returns the rows of one test case in materialized order.
func (m Materialized) ForTestCase(testCaseID string) []ResolvedInvocation {
	return rowsForTestCase(m.Rows, testCaseID)
}

// TestCaseIDs returns the distinct test case ids in row order.
func (m Materialized) TestCaseIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, row := range m.Rows {
		if !seen[row.TestCaseID] {
			seen[row.TestCaseID] = true
			ids = append(ids, row.TestCaseID)
		}
	}
	return ids
}

func rowsForTestCase(rows []ResolvedInvocation, testCaseID string) []ResolvedInvocation {
	var out []ResolvedInvocation
	for _, row := range rows {
		if row.TestCaseID == testCaseID {
			out = append(out, row)
		}
	}
	return out
}
