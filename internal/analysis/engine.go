package analysis

import (
	"context"
	"log/slog"
)

// Engine runs the risk-scoring pipeline. It is constructed once at startup
// and safe for concurrent use: the artifacts are immutable and every request
// works on request-local values.
type Engine struct {
	stats     EntityStatsMap
	forest    *Forest
	centroid  []float64
	embedder  *Embedder
	explainer *Explainer
	narrator  Narrator
}

// Options control optional engine components
type Options struct {
	EnableEmbeddings bool
	EmbeddingDim     int
}

// NewEngine builds an engine from the artifacts in dir. It never fails:
// missing artifacts activate the degraded fallbacks defined per component.
func NewEngine(artifactsDir string, opts Options) *Engine {
	set := LoadArtifacts(artifactsDir)

	eng := &Engine{
		stats:     set.Stats,
		forest:    set.Forest,
		centroid:  set.Centroid,
		explainer: set.Explainer,
	}

	if opts.EnableEmbeddings && len(set.Centroid) > 0 {
		dim := opts.EmbeddingDim
		if dim <= 0 {
			dim = len(set.Centroid)
		}
		if dim == len(set.Centroid) {
			eng.embedder = NewEmbedder(dim)
		} else {
			slog.Warn("Embedding dimension does not match centroid, semantic scoring disabled",
				"configured", dim, "centroid", len(set.Centroid))
		}
	}

	slog.Info("Analysis engine initialized",
		"degraded", eng.Degraded(),
		"semantic", eng.SemanticEnabled(),
		"explainer", eng.explainer != nil,
		"entities", len(eng.stats))

	return eng
}

// WithNarrator attaches a narrative generator. Call before serving requests.
func (e *Engine) WithNarrator(n Narrator) *Engine {
	e.narrator = n
	return e
}

// Degraded reports whether the statistical model artifact is unavailable and
// the z-score proxy is in use
func (e *Engine) Degraded() bool {
	return e.forest == nil
}

// SemanticEnabled reports whether the semantic model participates in fusion
func (e *Engine) SemanticEnabled() bool {
	return e.embedder != nil && len(e.centroid) > 0
}

// AnalyzeLight scores a record without narrative generation. It always
// returns a structurally complete assessment and never fails.
func (e *Engine) AnalyzeLight(record ContractRecord) *RiskAssessment {
	fv, description := ExtractFeatures(record, e.stats)

	statRisk, raw := scoreStatistical(e.forest, fv)

	semanticLoaded := e.SemanticEnabled()
	semRisk, distance := 0.0, 0.0
	if semanticLoaded {
		semRisk, distance = scoreSemantic(e.embedder, e.centroid, description)
	}

	attribution := Explain(e.explainer, fv)

	fused := FuseScores(statRisk, semRisk, semanticLoaded)

	return &RiskAssessment{
		Score:            fused,
		Tier:             TierFor(fused),
		StatisticalScore: statRisk,
		SemanticScore:    semRisk,
		RawStatistical:   raw,
		SemanticDistance: distance,
		Attribution:      attribution,
	}
}

// AnalyzeFull scores a record and attaches a generated narrative. Narrative
// failure falls back to the canned narrative; it never fails the assessment.
func (e *Engine) AnalyzeFull(ctx context.Context, record ContractRecord) *RiskAssessment {
	assessment := e.AnalyzeLight(record)

	if e.narrator == nil {
		return assessment
	}

	fv, _ := ExtractFeatures(record, e.stats)
	req := NarrativeRequest{
		Record:           record,
		Score:            assessment.Score,
		Tier:             assessment.Tier,
		Features:         fv,
		Attribution:      assessment.Attribution,
		StatisticalScore: assessment.StatisticalScore,
		SemanticScore:    assessment.SemanticScore,
		EntityMean:       e.stats.Lookup(record.EntityID).Mean,
	}

	narrative, err := e.narrator.Narrate(ctx, req)
	if err != nil || narrative == nil {
		slog.Warn("Narrative generation failed, using fallback", "contract", record.ID, "error", err)
		narrative = FallbackNarrative()
	}

	assessment.Narrative = narrative
	return assessment
}
