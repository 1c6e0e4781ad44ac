package core

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/icdload/internal/registry"
)

// FieldType represents the SQL literal kind of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldBool
	FieldExpr
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldInt:
		return "int"
	case FieldBool:
		return "bool"
	case FieldExpr:
		return "expr"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Accepts reports whether v is a value of the column kind t. A nil value
// is accepted for every kind and renders as NULL.
func (t FieldType) Accepts(v any) bool {
	switch v.(type) {
	case nil:
		return true
	case pgtype.Text:
		return t == FieldText
	case pgtype.Int4:
		return t == FieldInt
	case pgtype.Bool:
		return t == FieldBool
	case Expr:
		return t == FieldExpr
	default:
		return false
	}
}

// FieldSpec defines the rules for a single target column.
type FieldSpec struct {
	Name     string    // Column name, in the target table's casing
	Type     FieldType // Literal kind
	Required bool      // Row is incomplete if the value is NULL, or blank text
}

// TableInfo contains descriptive information about a target table.
type TableInfo struct {
	Key      string   // Unique identifier: "mms_categoria"
	Group    string   // Source classification: "MMS"
	Label    string   // Display name: "Categories"
	Table    string   // Table name used in the statement
	Sequence string   // Sequence feeding the primary key, if any
	Columns  []string // Column names, in statement order
}

// BuildParamsFunc builds row parameters from a detail record.
// versionID is the classification version the row belongs to.
type BuildParamsFunc func(detail *registry.Entity, versionID int, parents ParentResolver) (any, error)

// RowFunc converts params to a row of values.
// The returned slice must contain values in the same order as Info.Columns.
// Each value must be a pgtype.Text, pgtype.Int4, pgtype.Bool or Expr.
type RowFunc func(params any) []any

// TableDefinition contains everything needed to generate rows for a table.
type TableDefinition struct {
	Info        TableInfo
	FieldSpecs  []FieldSpec
	BuildParams BuildParamsFunc
	Row         RowFunc
}

// RequiredColumns returns the names of the columns that must not be NULL.
func (t TableDefinition) RequiredColumns() []string {
	var cols []string
	for _, spec := range t.FieldSpecs {
		if spec.Required {
			cols = append(cols, spec.Name)
		}
	}
	return cols
}
