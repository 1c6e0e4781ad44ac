package registry

import "strings"

// CodeInfo is the codeinfo response for a single code.
type CodeInfo struct {
	Code   string `json:"code"`
	StemID string `json:"stemId"`
}

// LanguageText is a localized value wrapper as returned by the API,
// e.g. {"@language": "es", "@value": "Cólera"}.
type LanguageText struct {
	Language string  `json:"@language"`
	Value    *string `json:"@value"`
}

// Text returns the wrapped value. ok is false when the wrapper itself or
// its @value member is absent; a present but empty value reports ok.
func (t *LanguageText) Text() (value string, ok bool) {
	if t == nil || t.Value == nil {
		return "", false
	}
	return *t.Value, true
}

// Entity is a linearization entity detail record.
type Entity struct {
	ID                 *string       `json:"@id"`
	Code               *string       `json:"code"`
	Source             *string       `json:"source"`
	Title              *LanguageText `json:"title"`
	Definition         *LanguageText `json:"definition"`
	FullySpecifiedName *LanguageText `json:"fullySpecifiedName"`
	BrowserURL         *string       `json:"browserUrl"`

	Child                             []string `json:"child"`
	Parent                            []string `json:"parent"`
	RelatedEntitiesInMaternalChapter  []string `json:"relatedEntitiesInMaternalChapter"`
	RelatedEntitiesInPerinatalChapter []string `json:"relatedEntitiesInPerinatalChapter"`
}

// URI returns the entity's @id.
func (e *Entity) URI() (string, bool) { return deref(e.ID) }

// CodeValue returns the entity's code.
func (e *Entity) CodeValue() (string, bool) { return deref(e.Code) }

// SourceURI returns the foundation entity the linearization entity derives from.
func (e *Entity) SourceURI() (string, bool) { return deref(e.Source) }

// Browser returns the ICD browser URL for the entity.
func (e *Entity) Browser() (string, bool) { return deref(e.BrowserURL) }

// IsOtherResidual reports whether the entity is an "other specified" residual category.
func (e *Entity) IsOtherResidual() bool {
	uri, _ := e.URI()
	return strings.HasSuffix(uri, "/other")
}

// IsUnspecifiedResidual reports whether the entity is an "unspecified" residual category.
func (e *Entity) IsUnspecifiedResidual() bool {
	uri, _ := e.URI()
	return strings.HasSuffix(uri, "/unspecified")
}

// IsLeaf reports whether the entity has no children.
func (e *Entity) IsLeaf() bool { return len(e.Child) == 0 }

// HasMaternalLinks reports whether the entity links into the maternal chapter.
func (e *Entity) HasMaternalLinks() bool { return len(e.RelatedEntitiesInMaternalChapter) > 0 }

// HasPerinatalLinks reports whether the entity links into the perinatal chapter.
func (e *Entity) HasPerinatalLinks() bool { return len(e.RelatedEntitiesInPerinatalChapter) > 0 }

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
