package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radarcol/radarcol/internal/analysis"
	"github.com/radarcol/radarcol/internal/config"
)

func testTTL() config.TTLDays {
	return config.TTLDays{Stats: 7, Light: 15, Detailed: 30}
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(filepath.Join(t.TempDir(), "cache.db"), testTTL())
	require.True(t, c.Enabled())
	t.Cleanup(func() { c.Close() })
	return c
}

func lightPayload(id string) LightPayload {
	return LightPayload{
		ContractID:       id,
		EntityName:       "Alcaldía de Medellín",
		Value:            120_000_000,
		StartDate:        "2025-03-01",
		Tier:             analysis.TierHigh,
		Anomaly:          0.62,
		StatisticalScore: 0.7,
		SemanticScore:    0.4,
	}
}

func TestCacheDisabledWithoutURL(t *testing.T) {
	c := New("", testTTL())

	assert.False(t, c.Enabled())

	// Every read misses, every write is a no-op, nothing panics
	_, ok := c.GetStats("abc")
	assert.False(t, ok)
	_, ok = c.GetLight("CO1")
	assert.False(t, ok)
	_, ok = c.GetDetailed("CO1")
	assert.False(t, ok)
	assert.Empty(t, c.BatchGetLight([]string{"CO1"}))

	c.PutStats("abc", "filtros", StatsPayload{TotalContracts: 1})
	c.PutLight(lightPayload("CO1"))
	c.BatchPutLight([]LightPayload{lightPayload("CO1")})
	c.PutDetailed(DetailedPayload{ContractID: "CO1", Summary: "x"})
	c.CleanupExpired()
	assert.Empty(t, c.Stats())
	assert.NoError(t, c.Close())
}

func TestStatsRoundTrip(t *testing.T) {
	c := newTestCache(t)

	payload := StatsPayload{
		TotalContracts: 200,
		HighRisk:       14,
		MediumRisk:     30,
		LowRisk:        156,
		PctHighRisk:    7.0,
		TotalAmountCOP: 5_400_000_000,
	}
	fingerprint := Fingerprint(map[string]interface{}{"return_limit": 200, "sample_mode": true})

	_, ok := c.GetStats(fingerprint)
	assert.False(t, ok, "miss before write")

	c.PutStats(fingerprint, "muestra de 200 contratos", payload)

	got, ok := c.GetStats(fingerprint)
	require.True(t, ok)
	assert.Equal(t, payload, *got)
}

func TestStatsUpsertReplaces(t *testing.T) {
	c := newTestCache(t)
	fingerprint := "fixed-fingerprint"

	c.PutStats(fingerprint, "v1", StatsPayload{TotalContracts: 10})
	c.PutStats(fingerprint, "v2", StatsPayload{TotalContracts: 25})

	got, ok := c.GetStats(fingerprint)
	require.True(t, ok)
	assert.Equal(t, 25, got.TotalContracts)
	assert.Equal(t, map[string]int{
		"total_stats":     1,
		"total_ligero":    0,
		"total_detallado": 0,
	}, c.Stats())
}

func TestTTLExpiryIsLazy(t *testing.T) {
	c := newTestCache(t)

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.PutLight(lightPayload("CO1.PCCNTR.700"))

	_, ok := c.GetLight("CO1.PCCNTR.700")
	assert.True(t, ok, "hit within TTL")

	// One minute before the 15-day light TTL elapses
	c.now = func() time.Time { return base.Add(15*24*time.Hour - time.Minute) }
	_, ok = c.GetLight("CO1.PCCNTR.700")
	assert.True(t, ok)

	// Past expiration the row still exists but reads must miss
	c.now = func() time.Time { return base.Add(15*24*time.Hour + time.Minute) }
	_, ok = c.GetLight("CO1.PCCNTR.700")
	assert.False(t, ok, "expired row is a miss while physically stored")
	assert.Equal(t, 1, c.Stats()["total_ligero"])

	c.CleanupExpired()
	assert.Equal(t, 0, c.Stats()["total_ligero"])
}

func TestBatchGetLightPartialHits(t *testing.T) {
	c := newTestCache(t)

	c.BatchPutLight([]LightPayload{
		lightPayload("CO1"), lightPayload("CO3"), lightPayload("CO5"),
	})

	hits := c.BatchGetLight([]string{"CO1", "CO2", "CO3", "CO4", "CO5"})

	require.Len(t, hits, 3)
	assert.Contains(t, hits, "CO1")
	assert.Contains(t, hits, "CO3")
	assert.Contains(t, hits, "CO5")
	assert.NotContains(t, hits, "CO2")
	assert.Equal(t, analysis.TierHigh, hits["CO1"].Tier)
}

func TestBatchGetLightEmptyInput(t *testing.T) {
	c := newTestCache(t)
	assert.Empty(t, c.BatchGetLight(nil))
}

func TestDetailedRoundTrip(t *testing.T) {
	c := newTestCache(t)

	payload := DetailedPayload{
		ContractID:      "CO1.PCCNTR.800",
		Summary:         "Contrato con desviación severa frente al histórico de la entidad.",
		Factors:         []string{"z-score 6.2", "costo por carácter atípico"},
		Recommendations: []string{"auditoría de precios", "revisión jurídica"},
		Attribution: []analysis.AttributionItem{
			{Feature: "z_score_valor", Weight: 6.2},
			{Feature: "costo_por_caracter", Weight: 1.4},
		},
		Score:            0.91,
		StatisticalScore: 1.0,
		SemanticScore:    0.7,
		RawStatistical:   -0.42,
		SemanticDistance: 1.4,
		Tier:             analysis.TierCritical,
	}

	_, ok := c.GetDetailed(payload.ContractID)
	assert.False(t, ok)

	c.PutDetailed(payload)

	got, ok := c.GetDetailed(payload.ContractID)
	require.True(t, ok)
	assert.Equal(t, payload, *got)
}

func TestDetailedEmptyListsStayEmpty(t *testing.T) {
	c := newTestCache(t)

	c.PutDetailed(DetailedPayload{
		ContractID: "CO1.PCCNTR.900",
		Summary:    "Sin factores destacables.",
		Tier:       analysis.TierLow,
	})

	got, ok := c.GetDetailed("CO1.PCCNTR.900")
	require.True(t, ok)
	assert.NotNil(t, got.Factors)
	assert.Empty(t, got.Factors)
	assert.NotNil(t, got.Attribution)
	assert.Empty(t, got.Attribution)
}

func TestCacheKindTTLs(t *testing.T) {
	c := newTestCache(t)
	base := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	assert.Equal(t, base.Add(7*24*time.Hour), c.expiration(KindStats))
	assert.Equal(t, base.Add(15*24*time.Hour), c.expiration(KindLight))
	assert.Equal(t, base.Add(30*24*time.Hour), c.expiration(KindDetailed))
}
