package registry

import (
	"encoding/json"
	"testing"
)

func decodeEntity(t *testing.T, raw string) *Entity {
	t.Helper()
	var e Entity
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &e
}

func TestLanguageText_Text(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValue string
		wantOK    bool
	}{
		{"absent wrapper", `{}`, "", false},
		{"null wrapper", `{"title": null}`, "", false},
		{"wrapper without value", `{"title": {"@language": "es"}}`, "", false},
		{"empty value", `{"title": {"@language": "es", "@value": ""}}`, "", true},
		{"value", `{"title": {"@language": "es", "@value": "Cólera"}}`, "Cólera", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeEntity(t, tt.raw)
			got, ok := e.Title.Text()
			if got != tt.wantValue || ok != tt.wantOK {
				t.Errorf("Text() = %q, %v, want %q, %v", got, ok, tt.wantValue, tt.wantOK)
			}
		})
	}
}

func TestEntity_ScalarAccessors(t *testing.T) {
	e := decodeEntity(t, `{"@id": "http://x/mms/1", "code": "", "browserUrl": "https://icd.who.int/browse/1"}`)

	if uri, ok := e.URI(); !ok || uri != "http://x/mms/1" {
		t.Errorf("URI() = %q, %v", uri, ok)
	}
	if code, ok := e.CodeValue(); !ok || code != "" {
		t.Errorf("CodeValue() = %q, %v, want present and empty", code, ok)
	}
	if _, ok := e.SourceURI(); ok {
		t.Error("SourceURI() should be absent")
	}
	if url, ok := e.Browser(); !ok || url != "https://icd.who.int/browse/1" {
		t.Errorf("Browser() = %q, %v", url, ok)
	}
}

func TestEntity_Residuals(t *testing.T) {
	tests := []struct {
		id              string
		wantOther       bool
		wantUnspecified bool
	}{
		{"http://id.who.int/icd/release/11/2025-01/mms/123/other", true, false},
		{"http://id.who.int/icd/release/11/2025-01/mms/123/unspecified", false, true},
		{"http://id.who.int/icd/release/11/2025-01/mms/123", false, false},
		{"http://id.who.int/icd/release/11/2025-01/mms/123/otherwise", false, false},
	}

	for _, tt := range tests {
		id := tt.id
		e := &Entity{ID: &id}
		if got := e.IsOtherResidual(); got != tt.wantOther {
			t.Errorf("IsOtherResidual(%q) = %v, want %v", tt.id, got, tt.wantOther)
		}
		if got := e.IsUnspecifiedResidual(); got != tt.wantUnspecified {
			t.Errorf("IsUnspecifiedResidual(%q) = %v, want %v", tt.id, got, tt.wantUnspecified)
		}
	}

	if (&Entity{}).IsOtherResidual() {
		t.Error("entity without @id is not residual")
	}
}

func TestEntity_ListPredicates(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantLeaf      bool
		wantMaternal  bool
		wantPerinatal bool
	}{
		{"absent lists", `{}`, true, false, false},
		{"empty lists", `{"child": [], "relatedEntitiesInMaternalChapter": [], "relatedEntitiesInPerinatalChapter": []}`, true, false, false},
		{"children", `{"child": ["http://x/mms/1"]}`, false, false, false},
		{"maternal", `{"relatedEntitiesInMaternalChapter": ["http://x/mms/2"]}`, true, true, false},
		{"perinatal", `{"relatedEntitiesInPerinatalChapter": ["http://x/mms/3"]}`, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeEntity(t, tt.raw)
			if got := e.IsLeaf(); got != tt.wantLeaf {
				t.Errorf("IsLeaf() = %v, want %v", got, tt.wantLeaf)
			}
			if got := e.HasMaternalLinks(); got != tt.wantMaternal {
				t.Errorf("HasMaternalLinks() = %v, want %v", got, tt.wantMaternal)
			}
			if got := e.HasPerinatalLinks(); got != tt.wantPerinatal {
				t.Errorf("HasPerinatalLinks() = %v, want %v", got, tt.wantPerinatal)
			}
		})
	}
}
