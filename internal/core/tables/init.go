// Package tables registers the target table definitions with the core
// registry. Import it for its side effects.
package tables
