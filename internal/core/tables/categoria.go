package tables

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/icdload/internal/core"
	"github.com/JonMunkholm/icdload/internal/registry"
)

const (
	// CategoryKey is the registry key of the MMS category table.
	CategoryKey = "mms_categoria"

	categoryTable    = "HIS_TB_MMS_CATEGORIA"
	categorySequence = "HIS_SQ_MMS_CATEGORIA"
)

func init() {
	registerCategoria()
}

// CategoryParams holds one HIS_TB_MMS_CATEGORIA row.
type CategoryParams struct {
	IDBloque                 pgtype.Int4
	IDCapitulo               pgtype.Int4
	IDVersion                pgtype.Int4
	URIOms                   pgtype.Text
	Codigo                   pgtype.Text
	URIFuenteFoundation      pgtype.Text
	Titulo                   pgtype.Text
	Definicion               pgtype.Text
	NombreCompleto           pgtype.Text
	CriteriosDiagnosticos    pgtype.Text
	NotaCodificacion         pgtype.Text
	URLNavegador             pgtype.Text
	EsResidualOtro           pgtype.Bool
	EsResidualNoEspecificado pgtype.Bool
	EsHoja                   pgtype.Bool
	TieneEnlaceMaternal      pgtype.Bool
	TieneEnlacePerinatal     pgtype.Bool
}

func registerCategoria() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:      CategoryKey,
			Group:    "MMS",
			Label:    "Categories",
			Table:    categoryTable,
			Sequence: categorySequence,
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "ID_CATEGORIA", Type: core.FieldExpr, Required: true},
			{Name: "ID_BLOQUE", Type: core.FieldInt},
			{Name: "ID_CAPITULO", Type: core.FieldInt},
			{Name: "ID_VERSION", Type: core.FieldInt, Required: true},
			{Name: "URI_OMS", Type: core.FieldText, Required: true},
			{Name: "CODIGO", Type: core.FieldText, Required: true},
			{Name: "URI_FUENTE_FOUNDATION", Type: core.FieldText},
			{Name: "TITULO", Type: core.FieldText, Required: true},
			{Name: "DEFINICION", Type: core.FieldText},
			{Name: "NOMBRE_COMPLETO", Type: core.FieldText},
			{Name: "CRITERIOS_DIAGNOSTICOS", Type: core.FieldText},
			{Name: "NOTA_CODIFICACION", Type: core.FieldText},
			{Name: "URL_NAVEGADOR", Type: core.FieldText},
			{Name: "ES_RESIDUAL_OTRO", Type: core.FieldBool},
			{Name: "ES_RESIDUAL_NO_ESPECIFICADO", Type: core.FieldBool},
			{Name: "ES_HOJA", Type: core.FieldBool},
			{Name: "TIENE_ENLACE_MATERNAL", Type: core.FieldBool},
			{Name: "TIENE_ENLACE_PERINATAL", Type: core.FieldBool},
		},
		BuildParams: buildCategoryParams,
		Row:         categoryRow,
	})
}

func buildCategoryParams(detail *registry.Entity, versionID int, parents core.ParentResolver) (any, error) {
	if detail == nil {
		return nil, fmt.Errorf("%s: nil detail record", CategoryKey)
	}

	chapter, block := core.ResolveParents(parents, detail.Parent)

	return CategoryParams{
		IDBloque:            block,
		IDCapitulo:          chapter,
		IDVersion:           core.ToPgInt4(versionID),
		URIOms:              core.ToPgOptionalText(detail.URI()),
		Codigo:              core.ToPgOptionalText(detail.CodeValue()),
		URIFuenteFoundation: core.ToPgOptionalText(detail.SourceURI()),
		Titulo:              core.ToPgOptionalText(detail.Title.Text()),
		Definicion:          core.ToPgOptionalText(detail.Definition.Text()),
		NombreCompleto:      core.ToPgOptionalText(detail.FullySpecifiedName.Text()),
		// Not carried by the linearization entity response.
		CriteriosDiagnosticos:    pgtype.Text{},
		NotaCodificacion:         pgtype.Text{},
		URLNavegador:             core.ToPgOptionalText(detail.Browser()),
		EsResidualOtro:           core.ToPgBool(detail.IsOtherResidual()),
		EsResidualNoEspecificado: core.ToPgBool(detail.IsUnspecifiedResidual()),
		EsHoja:                   core.ToPgBool(detail.IsLeaf()),
		TieneEnlaceMaternal:      core.ToPgBool(detail.HasMaternalLinks()),
		TieneEnlacePerinatal:     core.ToPgBool(detail.HasPerinatalLinks()),
	}, nil
}

func categoryRow(params any) []any {
	p := params.(CategoryParams)
	return []any{
		core.Expr(categorySequence + ".NEXTVAL"),
		p.IDBloque,
		p.IDCapitulo,
		p.IDVersion,
		p.URIOms,
		p.Codigo,
		p.URIFuenteFoundation,
		p.Titulo,
		p.Definicion,
		p.NombreCompleto,
		p.CriteriosDiagnosticos,
		p.NotaCodificacion,
		p.URLNavegador,
		p.EsResidualOtro,
		p.EsResidualNoEspecificado,
		p.EsHoja,
		p.TieneEnlaceMaternal,
		p.TieneEnlacePerinatal,
	}
}
