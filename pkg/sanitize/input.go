package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source says where an untrusted value came from. Each source has its own size limit.
type Source string

const (
	// SourceCell is one cell of an imported lead CSV.
	SourceCell Source = "csv"
	// SourceVariable is a dynamic or collected variable on a call event.
	SourceVariable Source = "call"
)

var (
	// MaxCellSize bounds a single CSV cell.
	MaxCellSize = 2048
	// MaxVariableSize bounds a single call variable. Collected free text runs longer than a cell.
	MaxVariableSize = 4096

	EnvMaxCellSize     = "SWITCHBOARD_MAX_CELL_SIZE"
	EnvMaxVariableSize = "SWITCHBOARD_MAX_VARIABLE_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// FieldError names the column or variable that was rejected.
type FieldError struct {
	Source Source
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Cell cleans one CSV cell read from column.
func Cell(column, value string) (string, error) {
	return clean(SourceCell, column, value)
}

// Variable cleans the call variable name before it lands on a lead.
func Variable(name, value string) (string, error) {
	return clean(SourceVariable, name, value)
}

// clean enforces the source limit, validates UTF-8 and drops characters that
// would garble the TUI, logs or a later CSV export: control characters other
// than newline, tab and carriage return, bidi overrides and byte order marks.
func clean(src Source, field, value string) (string, error) {
	limit := maxSize(src)
	if len(value) > limit {
		return "", &FieldError{
			Source: src,
			Field:  field,
			Err:    fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(value), limit),
		}
	}
	if !utf8.ValidString(value) {
		return "", &FieldError{Source: src, Field: field, Err: ErrInvalidUTF8}
	}
	if strings.IndexFunc(value, dropped) < 0 {
		return value, nil
	}

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if !dropped(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func dropped(r rune) bool {
	switch {
	case r == '\n' || r == '\t' || r == '\r':
		return false
	case unicode.IsControl(r):
		return true
	case r == '\ufeff':
		return true
	case r >= '\u202a' && r <= '\u202e', r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

func maxSize(src Source) int {
	env, def := EnvMaxCellSize, MaxCellSize
	if src == SourceVariable {
		env, def = EnvMaxVariableSize, MaxVariableSize
	}
	if val := os.Getenv(env); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return def
}
