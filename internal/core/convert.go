package core

// convert.go provides conversions from detail-record fields to pgx types and
// from pgx types to SQL literals.
//
// ToPg* functions return pgtype values with Valid=false for absent input;
// such values are rendered as NULL. A present but blank text field stays
// valid and is rendered as ''.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// NullLiteral is the SQL token for an absent value.
const NullLiteral = "NULL"

// Expr is raw SQL placed in a statement unchanged, e.g. a sequence call.
type Expr string

// ToPgOptionalText converts an optional field to pgtype.Text.
// Returns invalid only if the field is absent; a blank field is valid
// and holds the empty string.
func ToPgOptionalText(s string, present bool) pgtype.Text {
	if !present {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: strings.TrimSpace(s), Valid: true}
}

// ToPgInt4 converts an int to pgtype.Int4.
// Returns invalid if the value is not positive or does not fit in 32 bits.
func ToPgInt4(i int) pgtype.Int4 {
	if i <= 0 || i > math.MaxInt32 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgBool converts a bool to a valid pgtype.Bool.
func ToPgBool(b bool) pgtype.Bool {
	return pgtype.Bool{Bool: b, Valid: true}
}

// SQLText renders text as a quoted literal.
// Leading and trailing whitespace is trimmed and single quotes are doubled.
func SQLText(t pgtype.Text) string {
	if !t.Valid {
		return NullLiteral
	}
	s := strings.TrimSpace(t.String)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SQLInt4 renders an integer literal.
func SQLInt4(i pgtype.Int4) string {
	if !i.Valid {
		return NullLiteral
	}
	return strconv.FormatInt(int64(i.Int32), 10)
}

// SQLBool renders a boolean as 1 or 0.
func SQLBool(b pgtype.Bool) string {
	if !b.Valid {
		return NullLiteral
	}
	if b.Bool {
		return "1"
	}
	return "0"
}

// Literal renders a row value as SQL.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case pgtype.Text:
		return SQLText(val), nil
	case pgtype.Int4:
		return SQLInt4(val), nil
	case pgtype.Bool:
		return SQLBool(val), nil
	case Expr:
		return string(val), nil
	case nil:
		return NullLiteral, nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// IsNull reports whether a row value renders as NULL.
func IsNull(v any) bool {
	switch val := v.(type) {
	case pgtype.Text:
		return !val.Valid
	case pgtype.Int4:
		return !val.Valid
	case pgtype.Bool:
		return !val.Valid
	case Expr:
		return strings.TrimSpace(string(val)) == ""
	default:
		return v == nil
	}
}
