package benchgen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// CLIHandler is a slog.Handler writing one plain text line per record:
//
//	2006-01-02 15:04:05.000 [LEVEL] [cmd_id] category: message key=value ...
//
// The cmd_id and category parts are omitted when unset. Attributes other
// than category and cmd_id, such as prog_id or table, follow the message.
type CLIHandler struct {
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
	cmdID string
	mu    *sync.Mutex
}

// NewCLIHandler creates a CLIHandler writing records at or above level to w.
func NewCLIHandler(w io.Writer, level slog.Level) *CLIHandler {
	return &CLIHandler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *CLIHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle writes r as a single line.
func (h *CLIHandler) Handle(_ context.Context, r slog.Record) error {
	category := ""
	var extra []slog.Attr
	collect := func(a slog.Attr) {
		if a.Key == LogAttrKeyCategory.String() {
			// Record attrs come after handler attrs, so the last one wins.
			category = a.Value.String()
			return
		}
		extra = append(extra, a)
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var sb strings.Builder
	sb.WriteString(r.Time.Format("2006-01-02 15:04:05.000"))
	sb.WriteString(" [" + strings.ToUpper(r.Level.String()) + "]")
	if h.cmdID != "" {
		sb.WriteString(" [" + h.cmdID + "]")
	}
	sb.WriteString(" ")
	if category != "" {
		sb.WriteString(category + ": ")
	}
	sb.WriteString(r.Message)
	for _, a := range extra {
		sb.WriteString(" " + a.Key + "=" + a.Value.String())
	}
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// WithAttrs returns a handler carrying attrs on every record. A cmd_id
// attribute replaces the handler's command id instead.
func (h *CLIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &CLIHandler{
		w:     h.w,
		level: h.level,
		attrs: slices.Clone(h.attrs),
		cmdID: h.cmdID,
		mu:    h.mu,
	}
	for _, a := range attrs {
		if a.Key == LogAttrKeyCmdID.String() {
			next.cmdID = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

// WithGroup returns h unchanged. Groups are not rendered.
func (h *CLIHandler) WithGroup(_ string) slog.Handler {
	return h
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *slog.Logger {
	return slog.New(NewCLIHandler(io.Discard, slog.LevelError+1))
}

// CategoryLogger returns log with category attached to every record.
func CategoryLogger(log *slog.Logger, category string) *slog.Logger {
	return log.With(LogAttrKeyCategory.Attr(category))
}

// VerbosityToLevel maps the -v count to a level: warnings by default,
// info with -v and debug with -vv or more.
func VerbosityToLevel(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// LogAttrKey is a type-safe key for slog attributes.
type LogAttrKey string

func (k LogAttrKey) String() string {
	return string(k)
}

// Attr creates a string attribute with this key.
func (k LogAttrKey) Attr(value string) slog.Attr {
	return slog.String(string(k), value)
}

const (
	LogAttrKeyCategory   LogAttrKey = "category"
	LogAttrKeyCmdID      LogAttrKey = "cmd_id"
	LogAttrKeyTable      LogAttrKey = "table"
	LogAttrKeyProgID     LogAttrKey = "prog_id"
	LogAttrKeyTestCaseID LogAttrKey = "test_case_id"
)

// Log categories, printed before the message.
const (
	LogCategoryDebug       = "debug"
	LogCategoryConfig      = "config"
	LogCategoryStore       = "store"
	LogCategoryResolve     = "resolve"
	LogCategoryMaterialize = "materialize"
	LogCategoryScript      = "script"
	LogCategoryGenerate    = "generate"
)

// DefaultCommandIDBytes gives 8 hex characters per command id.
const DefaultCommandIDBytes = 4

// GenerateCommandID returns a random id tying together the log lines of
// one benchgen invocation.
func GenerateCommandID() string {
	return GenerateCommandIDWithLength(DefaultCommandIDBytes)
}

// GenerateCommandIDWithLength returns 2*byteLen hex characters, or "" when
// no randomness is available, in which case log lines carry no id.
func GenerateCommandIDWithLength(byteLen int) string {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
