package core

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ParentKind classifies a parent reference of a category.
type ParentKind string

const (
	ParentChapter ParentKind = "chapter"
	ParentBlock   ParentKind = "block"
)

// chapterMarker identifies chapter URIs among a category's parents.
const chapterMarker = "/chapter/"

// ClassifyParent reports whether a parent URI refers to a chapter or a block.
func ClassifyParent(uri string) ParentKind {
	if strings.Contains(uri, chapterMarker) {
		return ParentChapter
	}
	return ParentBlock
}

// ParentResolver maps a parent URI to its database id.
// An invalid result means the id is unknown.
type ParentResolver interface {
	Resolve(uri string, kind ParentKind) pgtype.Int4
}

// ParentResolverFunc adapts a function to ParentResolver.
type ParentResolverFunc func(uri string, kind ParentKind) pgtype.Int4

// Resolve calls f.
func (f ParentResolverFunc) Resolve(uri string, kind ParentKind) pgtype.Int4 {
	return f(uri, kind)
}

// NoParents resolves nothing. Chapter and block ids stay NULL until the
// chapter and block tables are loaded.
type NoParents struct{}

// Resolve always returns an invalid id.
func (NoParents) Resolve(string, ParentKind) pgtype.Int4 {
	return pgtype.Int4{Valid: false}
}

// ResolveParents returns the first resolved chapter and block ids among
// parents. A nil resolver behaves like NoParents.
func ResolveParents(r ParentResolver, parents []string) (chapter, block pgtype.Int4) {
	if r == nil {
		return chapter, block
	}
	for _, uri := range parents {
		kind := ClassifyParent(uri)
		switch {
		case kind == ParentChapter && !chapter.Valid:
			chapter = r.Resolve(uri, kind)
		case kind == ParentBlock && !block.Valid:
			block = r.Resolve(uri, kind)
		}
	}
	return chapter, block
}
