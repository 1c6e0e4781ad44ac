package core

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

func TestClassifyParent(t *testing.T) {
	tests := []struct {
		uri  string
		want ParentKind
	}{
		{"http://id.who.int/icd/release/11/2025-01/mms/chapter/1", ParentChapter},
		{"http://id.who.int/icd/release/11/2025-01/mms/915779102", ParentBlock},
		{"", ParentBlock},
	}

	for _, tt := range tests {
		if got := ClassifyParent(tt.uri); got != tt.want {
			t.Errorf("ClassifyParent(%q) = %s, want %s", tt.uri, got, tt.want)
		}
	}
}

func TestResolveParents_NoParents(t *testing.T) {
	parents := []string{"http://x/mms/chapter/1", "http://x/mms/915779102"}

	chapter, block := ResolveParents(NoParents{}, parents)
	if chapter.Valid || block.Valid {
		t.Errorf("ResolveParents(NoParents) = %+v, %+v, want both invalid", chapter, block)
	}

	chapter, block = ResolveParents(nil, parents)
	if chapter.Valid || block.Valid {
		t.Errorf("ResolveParents(nil) = %+v, %+v, want both invalid", chapter, block)
	}
}

func TestResolveParents_FirstResolvedWins(t *testing.T) {
	ids := map[string]int32{
		"http://x/mms/chapter/12": 12,
		"http://x/mms/200":        200,
		"http://x/mms/300":        300,
	}
	var calls []string
	resolver := ParentResolverFunc(func(uri string, kind ParentKind) pgtype.Int4 {
		calls = append(calls, string(kind)+" "+uri)
		if id, ok := ids[uri]; ok {
			return pgtype.Int4{Int32: id, Valid: true}
		}
		return pgtype.Int4{}
	})

	chapter, block := ResolveParents(resolver, []string{
		"http://x/mms/100",
		"http://x/mms/chapter/12",
		"http://x/mms/200",
		"http://x/mms/300",
	})

	if !chapter.Valid || chapter.Int32 != 12 {
		t.Errorf("chapter = %+v, want 12", chapter)
	}
	if !block.Valid || block.Int32 != 200 {
		t.Errorf("block = %+v, want 200", block)
	}

	// 300 is never asked for once a block id is known.
	if got := strings.Join(calls, ","); strings.Contains(got, "/300") {
		t.Errorf("resolver calls = %s, should stop after a block id is known", got)
	}
}
