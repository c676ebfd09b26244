package service

import (
	"context"
	"math"

	"github.com/radarcol/radarcol/internal/analysis"
	"github.com/radarcol/radarcol/internal/cache"
)

// Fetcher retrieves contract records from the external open-data source
type Fetcher interface {
	FetchContracts(ctx context.Context, where string, limit int) ([]analysis.ContractRecord, error)
	FetchContract(ctx context.Context, contractID string) (*analysis.ContractRecord, error)
}

// Contracts orchestrates the risk pipeline around the result cache: check
// cache, run the engine on misses, write results through on success.
type Contracts struct {
	engine  *analysis.Engine
	cache   *cache.Cache
	fetcher Fetcher
}

// NewContracts creates the contracts service
func NewContracts(engine *analysis.Engine, resultCache *cache.Cache, fetcher Fetcher) *Contracts {
	return &Contracts{
		engine:  engine,
		cache:   resultCache,
		fetcher: fetcher,
	}
}

// ListResult is the aggregate sample analysis for a filter set
type ListResult struct {
	Stats     cache.StatsPayload   `json:"estadisticas"`
	Contracts []cache.LightPayload `json:"contratos"`
}

// ListContracts fetches the newest matching contracts and scores them on the
// fast path (no narrative). Light analyses and aggregate statistics are
// cached independently; a partial batch hit recomputes only the misses.
func (s *Contracts) ListContracts(ctx context.Context, where string, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = 10
	}

	fingerprint := cache.Fingerprint(map[string]interface{}{
		"where_clause": where,
		"return_limit": limit,
		"sample_mode":  true,
	})

	cachedStats, statsHit := s.cache.GetStats(fingerprint)

	records, err := s.fetcher.FetchContracts(ctx, where, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	cachedLight := s.cache.BatchGetLight(ids)

	contracts := make([]cache.LightPayload, 0, len(records))
	recomputed := make([]cache.LightPayload, 0)

	for _, record := range records {
		if payload, ok := cachedLight[record.ID]; ok {
			contracts = append(contracts, payload)
			continue
		}

		assessment := s.engine.AnalyzeLight(record)
		payload := cache.LightPayload{
			ContractID:       record.ID,
			EntityName:       record.EntityName,
			Value:            record.Value,
			StartDate:        record.StartDate,
			Tier:             assessment.Tier,
			Anomaly:          roundPct(assessment.Score),
			StatisticalScore: assessment.StatisticalScore,
			SemanticScore:    assessment.SemanticScore,
		}
		contracts = append(contracts, payload)
		recomputed = append(recomputed, payload)
	}

	if statsHit && len(recomputed) == 0 {
		return &ListResult{Stats: *cachedStats, Contracts: contracts}, nil
	}

	stats := summarize(contracts)
	s.cache.BatchPutLight(recomputed)
	s.cache.PutStats(fingerprint, where, stats)

	return &ListResult{Stats: stats, Contracts: contracts}, nil
}

// ContractAnalysis returns the detailed assessment for one contract,
// including the narrative, cached by record id
func (s *Contracts) ContractAnalysis(ctx context.Context, contractID string) (*cache.DetailedPayload, error) {
	if payload, ok := s.cache.GetDetailed(contractID); ok {
		return payload, nil
	}

	record, err := s.fetcher.FetchContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	assessment := s.engine.AnalyzeFull(ctx, *record)

	narrative := assessment.Narrative
	if narrative == nil {
		narrative = analysis.FallbackNarrative()
	}

	payload := cache.DetailedPayload{
		ContractID:       contractID,
		Summary:          narrative.Summary,
		Factors:          narrative.Factors,
		Recommendations:  narrative.Recommendations,
		Attribution:      assessment.Attribution,
		Score:            assessment.Score,
		StatisticalScore: assessment.StatisticalScore,
		SemanticScore:    assessment.SemanticScore,
		RawStatistical:   assessment.RawStatistical,
		SemanticDistance: assessment.SemanticDistance,
		Tier:             assessment.Tier,
	}

	s.cache.PutDetailed(payload)
	return &payload, nil
}

// summarize aggregates sample statistics over the scored contracts
func summarize(contracts []cache.LightPayload) cache.StatsPayload {
	stats := cache.StatsPayload{TotalContracts: len(contracts)}

	for _, c := range contracts {
		stats.TotalAmountCOP += c.Value

		switch c.Tier {
		case analysis.TierCritical, analysis.TierHigh:
			stats.HighRisk++
		case analysis.TierMedium:
			stats.MediumRisk++
		default:
			stats.LowRisk++
		}
	}

	if stats.TotalContracts > 0 {
		stats.PctHighRisk = roundPct(float64(stats.HighRisk) / float64(stats.TotalContracts))
	}

	return stats
}

// roundPct converts a [0,1] score to a percentage with two decimals
func roundPct(score float64) float64 {
	return math.Round(score*10000) / 100
}
