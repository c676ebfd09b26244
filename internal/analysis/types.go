package analysis

import "context"

// Tier is the discrete risk bucket derived from the fused score. The Spanish
// labels are part of the persisted schema and must not be translated.
type Tier string

const (
	TierLow      Tier = "BAJO"
	TierMedium   Tier = "MEDIO"
	TierHigh     Tier = "ALTO"
	TierCritical Tier = "CRÍTICO"
)

// ContractRecord is the immutable per-request input, owned by the caller
type ContractRecord struct {
	ID                 string  `json:"id_contrato"`
	Value              float64 `json:"valor_del_contrato"`
	Description        string  `json:"objeto_del_contrato"`
	EntityID           string  `json:"nit_entidad"`
	EntityName         string  `json:"nombre_entidad"`
	StartDate          string  `json:"fecha_de_inicio_del_contrato"`
	DurationDays       float64 `json:"duracion_dias"`
	SigningYear        int     `json:"anio_firma"`
	SigningMonth       int     `json:"mes_firma"`
	ProviderDependency float64 `json:"indice_dependencia"`
}

// FeatureVector is the fixed, ordered set of numeric features derived from a
// record. Field order must match FeatureNames and the trained artifacts.
type FeatureVector struct {
	ZScoreValue        float64
	LogValue           float64
	CostPerChar        float64
	ProviderDependency float64
	PctTimeExtension   float64
	DurationDays       float64
	DaysSinceSigning   float64
	SigningYear        float64
	SigningMonth       float64
}

var featureNames = []string{
	"z_score_valor",
	"valor_logaritmo",
	"costo_por_caracter",
	"indice_dependencia_proveedor",
	"pct_tiempo_adicionado",
	"duracion_dias",
	"dias_tras_firma",
	"anio_firma",
	"mes_firma",
}

// FeatureNames returns the canonical feature order
func FeatureNames() []string {
	names := make([]string, len(featureNames))
	copy(names, featureNames)
	return names
}

// Slice returns the vector in canonical feature order
func (f FeatureVector) Slice() []float64 {
	return []float64{
		f.ZScoreValue,
		f.LogValue,
		f.CostPerChar,
		f.ProviderDependency,
		f.PctTimeExtension,
		f.DurationDays,
		f.DaysSinceSigning,
		f.SigningYear,
		f.SigningMonth,
	}
}

// AttributionItem is one feature's signed contribution to the statistical
// model's decision
type AttributionItem struct {
	Feature string  `json:"variable"`
	Weight  float64 `json:"valor"`
}

// Narrative is the human-readable assessment produced by the text-generation
// service, or the canned fallback. JSON keys match the persisted schema.
type Narrative struct {
	Summary         string   `json:"resumen"`
	Factors         []string `json:"factores"`
	Recommendations []string `json:"recomendaciones"`
}

// FallbackNarrative returns the canned narrative used whenever generation
// fails. Generation failure never fails the overall assessment.
func FallbackNarrative() *Narrative {
	return &Narrative{
		Summary:         "Análisis completado. Revise los indicadores numéricos.",
		Factors:         []string{"Análisis matemático completado"},
		Recommendations: []string{"Validación manual"},
	}
}

// RiskAssessment is the composite result of the scoring pipeline. It is not
// mutated after construction; the caller decides whether to persist it.
type RiskAssessment struct {
	Score            float64           `json:"score"`
	Tier             Tier              `json:"nivel_riesgo"`
	StatisticalScore float64           `json:"score_isolation_forest"`
	SemanticScore    float64           `json:"score_nlp_embeddings"`
	RawStatistical   float64           `json:"isolation_forest_raw"`
	SemanticDistance float64           `json:"distancia_semantica"`
	Attribution      []AttributionItem `json:"shap_values"`
	Narrative        *Narrative        `json:"analisis_llm,omitempty"`
}

// NarrativeRequest carries the evidence handed to the narrative generator
type NarrativeRequest struct {
	Record           ContractRecord
	Score            float64
	Tier             Tier
	Features         FeatureVector
	Attribution      []AttributionItem
	StatisticalScore float64
	SemanticScore    float64
	EntityMean       float64
}

// Narrator produces a narrative for an assessment. Implementations must
// return a usable narrative or an error; they never block score computation.
type Narrator interface {
	Narrate(ctx context.Context, req NarrativeRequest) (*Narrative, error)
}
