package cache

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/radarcol/radarcol/internal/analysis"
)

// StatsPayload is the cached aggregate-statistics result for one filter set
type StatsPayload struct {
	TotalContracts int     `json:"total_contratos"`
	HighRisk       int     `json:"contratos_alto_riesgo"`
	MediumRisk     int     `json:"contratos_medio_riesgo"`
	LowRisk        int     `json:"contratos_bajo_riesgo"`
	PctHighRisk    float64 `json:"porcentaje_alto_riesgo"`
	TotalAmountCOP float64 `json:"monto_total_cop"`
}

// LightPayload is the cached lightweight per-record analysis
type LightPayload struct {
	ContractID       string        `json:"id_contrato"`
	EntityName       string        `json:"nombre_entidad"`
	Value            float64       `json:"valor_contrato"`
	StartDate        string        `json:"fecha_inicio"`
	Tier             analysis.Tier `json:"nivel_riesgo"`
	Anomaly          float64       `json:"anomalia"`
	StatisticalScore float64       `json:"score_isolation_forest"`
	SemanticScore    float64       `json:"score_nlp_embeddings"`
}

// DetailedPayload is the cached detailed per-record analysis including the
// narrative. The list sub-fields round-trip through JSON-encoded columns.
type DetailedPayload struct {
	ContractID       string                     `json:"id_contrato"`
	Summary          string                     `json:"resumen_ejecutivo"`
	Factors          []string                   `json:"factores_principales"`
	Recommendations  []string                   `json:"recomendaciones"`
	Attribution      []analysis.AttributionItem `json:"shap_values"`
	Score            float64                    `json:"score_final"`
	StatisticalScore float64                    `json:"score_isolation_forest"`
	SemanticScore    float64                    `json:"score_nlp_embeddings"`
	RawStatistical   float64                    `json:"isolation_forest_raw"`
	SemanticDistance float64                    `json:"distancia_semantica"`
	Tier             analysis.Tier              `json:"nivel_riesgo"`
}

// GetStats reads the aggregate-statistics entry for a filter fingerprint.
// Expired rows are a miss even while physically stored.
func (c *Cache) GetStats(fingerprint string) (*StatsPayload, bool) {
	if !c.enabled {
		return nil, false
	}

	var p StatsPayload
	err := c.db.QueryRow(`
		SELECT total_contratos, contratos_alto_riesgo, contratos_medio_riesgo,
		       contratos_bajo_riesgo, porcentaje_alto_riesgo, monto_total_cop
		FROM estadisticas_globales
		WHERE filtro_hash = ? AND fecha_expiracion > ?
		LIMIT 1
	`, fingerprint, c.now()).Scan(
		&p.TotalContracts, &p.HighRisk, &p.MediumRisk,
		&p.LowRisk, &p.PctHighRisk, &p.TotalAmountCOP,
	)

	if err == sql.ErrNoRows {
		slog.Debug("Cache miss: stats", "fingerprint", short(fingerprint))
		return nil, false
	}
	if err != nil {
		slog.Error("Cache read failed: stats", "error", err)
		return nil, false
	}

	slog.Info("Cache hit: stats", "fingerprint", short(fingerprint))
	return &p, true
}

// PutStats upserts the aggregate-statistics entry, recomputing expiration
func (c *Cache) PutStats(fingerprint, description string, p StatsPayload) {
	if !c.enabled {
		return
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO estadisticas_globales (
			filtro_hash, filtro_descripcion, total_contratos,
			contratos_alto_riesgo, contratos_medio_riesgo, contratos_bajo_riesgo,
			porcentaje_alto_riesgo, monto_total_cop, fecha_expiracion
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fingerprint, description, p.TotalContracts,
		p.HighRisk, p.MediumRisk, p.LowRisk,
		p.PctHighRisk, p.TotalAmountCOP, c.expiration(KindStats))

	if err != nil {
		slog.Error("Cache write failed: stats", "error", err)
	}
}

// GetLight reads the lightweight analysis for one contract id
func (c *Cache) GetLight(contractID string) (*LightPayload, bool) {
	if !c.enabled {
		return nil, false
	}

	var p LightPayload
	err := c.db.QueryRow(`
		SELECT id_contrato, nombre_entidad, valor_contrato, fecha_inicio,
		       nivel_riesgo, anomalia, score_isolation_forest, score_nlp_embeddings
		FROM contratos_analisis_ligero
		WHERE id_contrato = ? AND fecha_expiracion > ?
	`, contractID, c.now()).Scan(
		&p.ContractID, &p.EntityName, &p.Value, &p.StartDate,
		&p.Tier, &p.Anomaly, &p.StatisticalScore, &p.SemanticScore,
	)

	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		slog.Error("Cache read failed: light", "error", err)
		return nil, false
	}

	return &p, true
}

// BatchGetLight returns the subset of ids with a current cached analysis.
// Callers recompute the missing subset themselves; the cache never backfills.
func (c *Cache) BatchGetLight(contractIDs []string) map[string]LightPayload {
	if !c.enabled || len(contractIDs) == 0 {
		return map[string]LightPayload{}
	}

	placeholders := strings.Repeat("?,", len(contractIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(contractIDs)+1)
	for _, id := range contractIDs {
		args = append(args, id)
	}
	args = append(args, c.now())

	rows, err := c.db.Query(`
		SELECT id_contrato, nombre_entidad, valor_contrato, fecha_inicio,
		       nivel_riesgo, anomalia, score_isolation_forest, score_nlp_embeddings
		FROM contratos_analisis_ligero
		WHERE id_contrato IN (`+placeholders+`) AND fecha_expiracion > ?
	`, args...)
	if err != nil {
		slog.Error("Cache batch read failed: light", "error", err)
		return map[string]LightPayload{}
	}
	defer rows.Close()

	cached := make(map[string]LightPayload)
	for rows.Next() {
		var p LightPayload
		if err := rows.Scan(
			&p.ContractID, &p.EntityName, &p.Value, &p.StartDate,
			&p.Tier, &p.Anomaly, &p.StatisticalScore, &p.SemanticScore,
		); err != nil {
			slog.Error("Cache batch scan failed: light", "error", err)
			continue
		}
		cached[p.ContractID] = p
	}

	slog.Info("Cache batch read: light", "hits", len(cached), "requested", len(contractIDs))
	return cached
}

// PutLight upserts one lightweight analysis
func (c *Cache) PutLight(p LightPayload) {
	if !c.enabled {
		return
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO contratos_analisis_ligero (
			id_contrato, nombre_entidad, valor_contrato, fecha_inicio,
			nivel_riesgo, anomalia, score_isolation_forest, score_nlp_embeddings,
			fecha_expiracion
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ContractID, p.EntityName, p.Value, p.StartDate,
		p.Tier, p.Anomaly, p.StatisticalScore, p.SemanticScore,
		c.expiration(KindLight))

	if err != nil {
		slog.Error("Cache write failed: light", "contract", p.ContractID, "error", err)
	}
}

// BatchPutLight upserts a batch of lightweight analyses sharing one
// expiration
func (c *Cache) BatchPutLight(payloads []LightPayload) {
	if !c.enabled || len(payloads) == 0 {
		return
	}

	expiration := c.expiration(KindLight)
	for _, p := range payloads {
		_, err := c.db.Exec(`
			INSERT OR REPLACE INTO contratos_analisis_ligero (
				id_contrato, nombre_entidad, valor_contrato, fecha_inicio,
				nivel_riesgo, anomalia, score_isolation_forest, score_nlp_embeddings,
				fecha_expiracion
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ContractID, p.EntityName, p.Value, p.StartDate,
			p.Tier, p.Anomaly, p.StatisticalScore, p.SemanticScore,
			expiration)

		if err != nil {
			slog.Error("Cache batch write failed: light", "contract", p.ContractID, "error", err)
		}
	}

	slog.Info("Cache batch write: light", "rows", len(payloads))
}

// GetDetailed reads the detailed analysis for one contract id
func (c *Cache) GetDetailed(contractID string) (*DetailedPayload, bool) {
	if !c.enabled {
		return nil, false
	}

	var p DetailedPayload
	var factors, recommendations, attribution string
	err := c.db.QueryRow(`
		SELECT id_contrato, resumen_ejecutivo, factores_principales, recomendaciones,
		       shap_values, score_final, score_isolation_forest, score_nlp_embeddings,
		       isolation_forest_raw, distancia_semantica, nivel_riesgo
		FROM contratos_analisis_detallado
		WHERE id_contrato = ? AND fecha_expiracion > ?
	`, contractID, c.now()).Scan(
		&p.ContractID, &p.Summary, &factors, &recommendations,
		&attribution, &p.Score, &p.StatisticalScore, &p.SemanticScore,
		&p.RawStatistical, &p.SemanticDistance, &p.Tier,
	)

	if err == sql.ErrNoRows {
		slog.Debug("Cache miss: detailed", "contract", contractID)
		return nil, false
	}
	if err != nil {
		slog.Error("Cache read failed: detailed", "error", err)
		return nil, false
	}

	p.Factors = decodeStrings(factors)
	p.Recommendations = decodeStrings(recommendations)
	p.Attribution = decodeAttribution(attribution)

	slog.Info("Cache hit: detailed", "contract", contractID)
	return &p, true
}

// PutDetailed upserts one detailed analysis
func (c *Cache) PutDetailed(p DetailedPayload) {
	if !c.enabled {
		return
	}

	factors, _ := json.Marshal(p.Factors)
	recommendations, _ := json.Marshal(p.Recommendations)
	attribution, _ := json.Marshal(p.Attribution)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO contratos_analisis_detallado (
			id_contrato, resumen_ejecutivo, factores_principales, recomendaciones,
			shap_values, score_final, score_isolation_forest, score_nlp_embeddings,
			isolation_forest_raw, distancia_semantica, nivel_riesgo, fecha_expiracion
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ContractID, p.Summary, string(factors), string(recommendations),
		string(attribution), p.Score, p.StatisticalScore, p.SemanticScore,
		p.RawStatistical, p.SemanticDistance, p.Tier, c.expiration(KindDetailed))

	if err != nil {
		slog.Error("Cache write failed: detailed", "contract", p.ContractID, "error", err)
	}
}

func decodeStrings(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func decodeAttribution(raw string) []analysis.AttributionItem {
	if raw == "" {
		return []analysis.AttributionItem{}
	}
	var out []analysis.AttributionItem
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []analysis.AttributionItem{}
	}
	return out
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8] + "..."
	}
	return hash
}
