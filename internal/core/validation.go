package core

// validation.go gates row generation on required columns.
//
// Every value must match the kind its FieldSpec declares; a mismatch is a
// table definition bug and is reported as a plain error. A row is complete
// when every FieldSpec marked Required has a non-NULL value, and, for text
// columns, one that is not blank. ValidateRow reports every missing column
// at once so that the log line for a skipped record names all of them.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrIncompleteRecord is returned when a detail record lacks a required value.
var ErrIncompleteRecord = errors.New("incomplete record")

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column name
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the set of failures for one row.
// It matches ErrIncompleteRecord with errors.Is.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%s: %s", ErrIncompleteRecord, strings.Join(msgs, "; "))
}

// Is reports whether target is ErrIncompleteRecord.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrIncompleteRecord
}

// Fields returns the names of the failing columns.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, e := range v {
		fields[i] = e.Field
	}
	return fields
}

// ValidateRow checks a row against the table's field specs.
// values must be in Info.Columns order. Returns nil if the row is complete.
func ValidateRow(def TableDefinition, values []any) error {
	if len(values) != len(def.Info.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", def.Info.Key, len(values), len(def.Info.Columns))
	}

	pos := make(map[string]int, len(def.Info.Columns))
	for i, col := range def.Info.Columns {
		pos[col] = i
	}

	for _, spec := range def.FieldSpecs {
		i, ok := pos[spec.Name]
		if ok && !spec.Type.Accepts(values[i]) {
			return fmt.Errorf("table %s: column %s holds %T, declared %s", def.Info.Key, spec.Name, values[i], spec.Type)
		}
	}

	var errs ValidationErrors
	for _, spec := range def.FieldSpecs {
		if !spec.Required {
			continue
		}
		i, ok := pos[spec.Name]
		if !ok {
			errs = append(errs, ValidationError{Field: spec.Name, Message: "missing required column"})
			continue
		}
		switch {
		case IsNull(values[i]):
			errs = append(errs, ValidationError{Field: spec.Name, Message: "required value is missing"})
		case isBlankText(values[i]):
			errs = append(errs, ValidationError{Field: spec.Name, Message: "required value is blank"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isBlankText(v any) bool {
	t, ok := v.(pgtype.Text)
	return ok && t.Valid && strings.TrimSpace(t.String) == ""
}
