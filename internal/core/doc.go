// Package core turns ICD-11 detail records into SQL INSERT statements.
//
// This package holds the statement-generation logic independent of how
// records are obtained. It can be driven by the pipeline, the CLI, or tests
// without modification.
//
// # Table Registry
//
// Target tables are registered at init time using [Register]. Each
// [TableDefinition] contains everything needed to turn a detail record into
// one row of that table:
//
//	core.Register(TableDefinition{
//	    Info: TableInfo{Key: "mms_categoria", Table: "HIS_TB_MMS_CATEGORIA"},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "URI_OMS", Type: FieldText, Required: true},
//	        {Name: "ES_HOJA", Type: FieldBool},
//	    },
//	    BuildParams: buildCategoryParams,
//	    Row:         categoryRow,
//	})
//
// # Values
//
// Row values are pgx types ([pgtype.Text], [pgtype.Int4], [pgtype.Bool])
// plus [Expr] for raw SQL such as a sequence call. An invalid pgtype value is
// rendered as the bare NULL token. Text is trimmed, single quotes are doubled
// and the result is wrapped in single quotes.
//
// # Output
//
// A [Generator] owns the output file: it truncates the file when created and
// on [Generator.Clear], and appends one statement per [Generator.Write].
// Append failures are logged, never returned.
package core
