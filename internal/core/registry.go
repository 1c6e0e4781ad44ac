package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTable is returned when a table key has not been registered.
var ErrUnknownTable = errors.New("unknown table")

var (
	tableRegistry = make(map[string]TableDefinition)
	tablesMu      sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered, or if the
// definition cannot produce rows.
func Register(def TableDefinition) {
	tablesMu.Lock()
	defer tablesMu.Unlock()

	if _, exists := tableRegistry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	if def.BuildParams == nil || def.Row == nil {
		panic(fmt.Sprintf("table %s: BuildParams and Row are required", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}

	tableRegistry[def.Info.Key] = def
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	tablesMu.RLock()
	defer tablesMu.RUnlock()

	def, ok := tableRegistry[key]
	return def, ok
}

// Lookup is Get with an error wrapping ErrUnknownTable.
func Lookup(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownTable, key, Keys())
	}
	return def, nil
}

// All returns all registered table definitions.
// Sorted by group then by key for consistent ordering.
func All() []TableDefinition {
	tablesMu.RLock()
	defer tablesMu.RUnlock()

	result := make([]TableDefinition, 0, len(tableRegistry))
	for _, def := range tableRegistry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Keys returns the registered table keys, sorted.
func Keys() []string {
	tablesMu.RLock()
	defer tablesMu.RUnlock()

	keys := make([]string, 0, len(tableRegistry))
	for k := range tableRegistry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
