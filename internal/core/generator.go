package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/icdload/internal/logging"
	"github.com/JonMunkholm/icdload/internal/registry"
)

// outputPerm is the mode used when the output file is created.
const outputPerm = 0o644

// Generator renders INSERT statements for one table and appends them to an
// output file. It is not safe for concurrent use.
type Generator struct {
	path    string
	def     TableDefinition
	parents ParentResolver
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithParentResolver sets how parent URIs are mapped to chapter and block ids.
// The default resolves nothing.
func WithParentResolver(r ParentResolver) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.parents = r
		}
	}
}

// NewGenerator creates a Generator writing to path and truncates the file.
func NewGenerator(ctx context.Context, path string, def TableDefinition, opts ...GeneratorOption) *Generator {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	g := &Generator{
		path:    path,
		def:     def,
		parents: NoParents{},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.Clear(ctx)
	return g
}

// Path returns the absolute path of the output file.
func (g *Generator) Path() string {
	return g.path
}

// Table returns the definition statements are generated for.
func (g *Generator) Table() TableDefinition {
	return g.def
}

// Clear truncates the output file, creating it if needed.
// Failures are logged, not returned.
func (g *Generator) Clear(ctx context.Context) {
	logger := logging.FromContext(ctx)

	if err := os.WriteFile(g.path, nil, outputPerm); err != nil {
		logger.Error("failed to clear output file", "path", g.path, "error", err)
		return
	}
	logger.Info("output file cleared", "path", g.path)
}

// Generate renders the INSERT statement for detail. It returns an error
// matching ErrIncompleteRecord if a required value is missing; no statement
// is produced in that case.
func (g *Generator) Generate(ctx context.Context, detail *registry.Entity, versionID int) (string, error) {
	if detail == nil {
		return "", errors.New("nil detail record")
	}

	code, _ := detail.CodeValue()
	logger := logging.WithFields(ctx, "code", code, "table", g.def.Info.Table)

	params, err := g.def.BuildParams(detail, versionID, g.parents)
	if err != nil {
		logger.Error("failed to build row", "error", err)
		return "", fmt.Errorf("build %s row: %w", g.def.Info.Key, err)
	}

	values := g.def.Row(params)
	if err := ValidateRow(g.def, values); err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			logger.Error("incomplete record, statement not generated",
				"missing", verrs.Fields(),
				"version_id", versionID,
			)
		} else {
			logger.Error("invalid row", "error", err)
		}
		return "", err
	}

	stmt, err := BuildStatement(g.def.Info, values)
	if err != nil {
		logger.Error("failed to render statement", "error", err)
		return "", err
	}
	return stmt, nil
}

// Write appends statement and a trailing newline to the output file.
// Failures are logged, not returned.
func (g *Generator) Write(ctx context.Context, statement string) {
	logger := logging.FromContext(ctx)

	f, err := os.OpenFile(g.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, outputPerm)
	if err != nil {
		logger.Error("failed to open output file", "path", g.path, "error", err)
		return
	}

	_, writeErr := f.WriteString(statement + "\n")
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		logger.Error("failed to write statement", "path", g.path, "error", err)
	}
}

// BuildStatement renders an INSERT statement. values must be in
// info.Columns order.
func BuildStatement(info TableInfo, values []any) (string, error) {
	if len(values) != len(info.Columns) {
		return "", fmt.Errorf("table %s: %d values for %d columns", info.Table, len(values), len(info.Columns))
	}

	literals := make([]string, len(values))
	for i, v := range values {
		lit, err := Literal(v)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", info.Columns[i], err)
		}
		literals[i] = lit
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(info.Table)
	b.WriteString(" (")
	b.WriteString(strings.Join(info.Columns, ", "))
	b.WriteString(")\nVALUES (")
	b.WriteString(strings.Join(literals, ", "))
	b.WriteString(");")
	return b.String(), nil
}
