package cache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/radarcol/radarcol/internal/config"
)

// Kind identifies one of the three cached payload families, each with its
// own TTL policy
type Kind string

const (
	KindStats    Kind = "stats"
	KindLight    Kind = "light"
	KindDetailed Kind = "detailed"
)

// Cache is the result cache over the libSQL-compatible backing store. When
// the store is unreachable at initialization the cache disables itself:
// every read is a miss, every write a no-op. Callers must treat it as an
// optional accelerator, never a dependency.
type Cache struct {
	db      *sql.DB
	enabled bool
	ttl     config.TTLDays
	now     func() time.Time
}

// New opens the cache backing store and runs migrations. It never returns an
// error: any failure yields a disabled cache.
func New(databaseURL string, ttl config.TTLDays) *Cache {
	c := &Cache{ttl: ttl, now: time.Now}

	if databaseURL == "" {
		slog.Warn("CACHE_DATABASE_URL not configured, result cache disabled")
		return c
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", databaseURL)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		slog.Error("Failed to open cache store, result cache disabled", "error", err)
		return c
	}

	if err := db.Ping(); err != nil {
		slog.Error("Cache store unreachable, result cache disabled", "error", err)
		db.Close()
		return c
	}

	c.db = db
	if err := c.migrate(); err != nil {
		slog.Error("Cache migration failed, result cache disabled", "error", err)
		db.Close()
		c.db = nil
		return c
	}

	c.enabled = true
	slog.Info("Result cache initialized",
		"ttl_stats_days", ttl.Stats,
		"ttl_light_days", ttl.Light,
		"ttl_detailed_days", ttl.Detailed)

	return c
}

// Enabled reports whether the backing store is reachable
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Close closes the backing store connection
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS estadisticas_globales (
			filtro_hash TEXT PRIMARY KEY,
			filtro_descripcion TEXT,
			total_contratos INTEGER NOT NULL,
			contratos_alto_riesgo INTEGER NOT NULL,
			contratos_medio_riesgo INTEGER NOT NULL,
			contratos_bajo_riesgo INTEGER NOT NULL,
			porcentaje_alto_riesgo REAL NOT NULL,
			monto_total_cop REAL NOT NULL,
			fecha_expiracion DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contratos_analisis_ligero (
			id_contrato TEXT PRIMARY KEY,
			nombre_entidad TEXT,
			valor_contrato REAL NOT NULL,
			fecha_inicio TEXT,
			nivel_riesgo TEXT NOT NULL,
			anomalia REAL NOT NULL,
			score_isolation_forest REAL,
			score_nlp_embeddings REAL,
			fecha_expiracion DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS contratos_analisis_detallado (
			id_contrato TEXT PRIMARY KEY,
			resumen_ejecutivo TEXT NOT NULL,
			factores_principales TEXT,
			recomendaciones TEXT,
			shap_values TEXT,
			score_final REAL NOT NULL,
			score_isolation_forest REAL NOT NULL,
			score_nlp_embeddings REAL NOT NULL,
			isolation_forest_raw REAL NOT NULL,
			distancia_semantica REAL NOT NULL,
			nivel_riesgo TEXT NOT NULL,
			fecha_expiracion DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_stats_expiracion ON estadisticas_globales(fecha_expiracion)`,
		`CREATE INDEX IF NOT EXISTS idx_ligero_expiracion ON contratos_analisis_ligero(fecha_expiracion)`,
		`CREATE INDEX IF NOT EXISTS idx_detallado_expiracion ON contratos_analisis_detallado(fecha_expiracion)`,
	}

	for _, query := range queries {
		if _, err := c.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// expiration computes now + ttl(kind)
func (c *Cache) expiration(kind Kind) time.Time {
	days := c.ttl.Detailed
	switch kind {
	case KindStats:
		days = c.ttl.Stats
	case KindLight:
		days = c.ttl.Light
	}
	return c.now().Add(time.Duration(days) * 24 * time.Hour)
}

// CleanupExpired deletes all rows past their expiration across the three
// kinds. Reads already filter by expiration, so this is housekeeping only.
func (c *Cache) CleanupExpired() {
	if !c.enabled {
		return
	}

	now := c.now()
	tables := []string{"estadisticas_globales", "contratos_analisis_ligero", "contratos_analisis_detallado"}
	for _, table := range tables {
		result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE fecha_expiracion <= ?", table), now)
		if err != nil {
			slog.Error("Cache cleanup failed", "table", table, "error", err)
			continue
		}
		if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
			slog.Info("Cache cleanup removed expired rows", "table", table, "rows", deleted)
		}
	}
}

// Stats returns row counts per table for the health endpoint
func (c *Cache) Stats() map[string]int {
	if !c.enabled {
		return map[string]int{}
	}

	counts := map[string]int{}
	tables := map[string]string{
		"estadisticas_globales":        "total_stats",
		"contratos_analisis_ligero":    "total_ligero",
		"contratos_analisis_detallado": "total_detallado",
	}

	for table, key := range tables {
		var count int
		if err := c.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			slog.Error("Failed to count cache rows", "table", table, "error", err)
			continue
		}
		counts[key] = count
	}

	return counts
}
