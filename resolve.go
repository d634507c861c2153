package benchgen

import (
	"fmt"
	"log/slog"
	"strings"
)

// OptionRequest is one generic option requested for every program,
// given on the command line as "id" or "id=value".
type OptionRequest struct {
	ID       string
	Value    string
	HasValue bool
}

// ParseOptionRequest splits s on the first '='.
func ParseOptionRequest(s string) OptionRequest {
	id, value, found := strings.Cut(s, "=")
	return OptionRequest{
		ID:       strings.TrimSpace(id),
		Value:    value,
		HasValue: found,
	}
}

// ParseOptionRequests parses each element of ss, dropping empty ids.
func ParseOptionRequests(ss []string) []OptionRequest {
	reqs := make([]OptionRequest, 0, len(ss))
	for _, s := range ss {
		req := ParseOptionRequest(s)
		if req.ID == "" {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func (r OptionRequest) String() string {
	if r.HasValue {
		return r.ID + "=" + r.Value
	}
	return r.ID
}

// DiagnosticKind classifies a soft resolution condition.
type DiagnosticKind string

const (
	// DiagUnresolvedReference: the program's opt_only_lang_type names no
	// dialect option, so the program is left out of every test case.
	DiagUnresolvedReference DiagnosticKind = "unresolved-reference"
	// DiagNoOptionMatch: a requested option has no text for the program.
	DiagNoOptionMatch DiagnosticKind = "no-option-match"
	// DiagNoFiletypeMatch: the program has no flag for a test case's file type.
	DiagNoFiletypeMatch DiagnosticKind = "no-filetype-match"
)

// Diagnostic records a condition that degraded the output without failing it.
type Diagnostic struct {
	Kind     DiagnosticKind
	ProgID   string
	OptID    string
	FileType string
}

// Message returns a human readable description.
func (d Diagnostic) Message() string {
	switch d.Kind {
	case DiagUnresolvedReference:
		return fmt.Sprintf("program %q excluded: opt_only_lang_type %q has no dialect entry", d.ProgID, d.OptID)
	case DiagNoOptionMatch:
		return fmt.Sprintf("program %q does not support option %q", d.ProgID, d.OptID)
	case DiagNoFiletypeMatch:
		return fmt.Sprintf("program %q has no %q flag for file type %q", d.ProgID, d.OptID, d.FileType)
	default:
		return fmt.Sprintf("%s: program %q", d.Kind, d.ProgID)
	}
}

// Resolver translates generic option requests and file types into
// program-specific command line text.
type Resolver struct {
	store *Store
	log   *slog.Logger

	diags []Diagnostic
	seen  map[Diagnostic]bool
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store *Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = NewNopLogger()
	}
	return &Resolver{
		store: store,
		log:   CategoryLogger(log, LogCategoryResolve),
		seen:  make(map[Diagnostic]bool),
	}
}

// ResolveOptions returns, for every program, the concatenated text of the
// requested options in request order. A program without a mapping for an
// option gets no text for it; that is not an error.
func (r *Resolver) ResolveOptions(requested []OptionRequest) map[string]string {
	programs := r.store.Programs()
	acc := make(map[string][]string, len(programs))
	for _, p := range programs {
		acc[p.ProgID] = nil
	}

	for _, req := range requested {
		for _, p := range programs {
			text, ok := r.lookupOption(p, req.ID)
			if !ok {
				r.note(Diagnostic{Kind: DiagNoOptionMatch, ProgID: p.ProgID, OptID: req.ID})
				continue
			}
			acc[p.ProgID] = append(acc[p.ProgID], text+req.Value)
		}
	}

	out := make(map[string]string, len(acc))
	for progID, parts := range acc {
		out[progID] = strings.Join(parts, " ")
	}
	return out
}

// lookupOption finds the text for optID in p's dialect, falling back to the
// program table's opt_<id> column. Empty text counts as no mapping.
func (r *Resolver) lookupOption(p ProgramEntry, optID string) (string, bool) {
	if d, ok := r.store.Dialect(p.ProgID, optID, ""); ok && d.OptText != "" {
		return d.OptText, true
	}
	if text, ok := p.OptionColumn(optID); ok && text != "" {
		return text, true
	}
	return "", false
}

// ResolveFiletype returns the dialect text for the program's
// (opt_only_lang_type, fileType) pair, or "" when there is none.
// An empty result means the flag is omitted.
func (r *Resolver) ResolveFiletype(progID, fileType string) string {
	p, ok := r.store.Program(progID)
	if !ok {
		return ""
	}
	d, ok := r.store.Dialect(p.ProgID, p.OptOnlyLangType, fileType)
	if !ok {
		r.note(Diagnostic{Kind: DiagNoFiletypeMatch, ProgID: p.ProgID, OptID: p.OptOnlyLangType, FileType: fileType})
		return ""
	}
	return d.OptText
}

// HasValidReference reports whether the program's opt_only_lang_type names
// a dialect option visible to it.
func (r *Resolver) HasValidReference(p ProgramEntry) bool {
	if r.store.HasOption(p.ProgID, p.OptOnlyLangType) {
		return true
	}
	r.note(Diagnostic{Kind: DiagUnresolvedReference, ProgID: p.ProgID, OptID: p.OptOnlyLangType})
	return false
}

// Diagnostics returns the soft conditions met so far, in first-seen order.
func (r *Resolver) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

func (r *Resolver) note(d Diagnostic) {
	if r.seen[d] {
		return
	}
	r.seen[d] = true
	r.diags = append(r.diags, d)
	r.log.Debug(string(d.Kind), LogAttrKeyProgID.Attr(d.ProgID), slog.String("opt_id", d.OptID))
}
