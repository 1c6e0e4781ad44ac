// Package codes loads the list of ICD-11 codes a run works through.
//
// The source is a JSON file whose top-level value must be an array of
// strings. Reading never fails from the caller's point of view: any problem
// is logged and an empty list is returned, which makes the run end early.
package codes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/icdload/internal/logging"
)

// ErrNotArray is reported when the file's top-level JSON value is not an array.
var ErrNotArray = errors.New("top-level JSON value is not an array")

// Read returns the codes stored in the JSON file at path, in file order.
// It returns an empty, non-nil slice if the file cannot be read, is not
// valid JSON, or does not hold an array. Array elements that are not strings
// are dropped with a warning.
func Read(ctx context.Context, path string) []string {
	logger := logging.FromContext(ctx)

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	logger.Info("reading codes", "file", absPath)

	f, err := os.Open(absPath)
	if err != nil {
		logger.Error("cannot open codes file", "file", path, "error", err)
		return []string{}
	}
	defer f.Close()

	codes, err := Decode(ctx, f)
	if err != nil {
		logger.Error("cannot parse codes file", "file", path, "error", err)
		return []string{}
	}

	logger.Info("codes read", "file", path, "count", len(codes))
	return codes
}

// Decode parses a JSON array of codes from r.
// Unlike Read it reports failures to the caller.
func Decode(ctx context.Context, r io.Reader) ([]string, error) {
	dec := json.NewDecoder(skipBOM(r))

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode codes: unexpected data after top-level value")
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("decode codes: %w (got %s)", ErrNotArray, jsonKind(raw))
	}

	codes := make([]string, 0, len(items))
	for i, item := range items {
		code, ok := item.(string)
		if !ok {
			logging.FromContext(ctx).Warn("skipping non-string code",
				"index", i,
				"kind", jsonKind(item),
			)
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// jsonKind names the JSON type of a value produced by encoding/json.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
