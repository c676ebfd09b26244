package analysis

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Artifact file names within the artifacts directory
const (
	entityStatsFile = "entity_stats.json"
	forestFile      = "isolation_forest.json"
	centroidFile    = "semantic_centroid.json"
	explainerFile   = "shap_explainer.json"
)

// EntityStats holds the historical contract-value distribution for one
// awarding entity. JSON keys match the trained artifact.
type EntityStats struct {
	Mean float64 `json:"media"`
	Std  float64 `json:"std"`
}

// EntityStatsMap maps entity identifiers to their statistics. The "default"
// entry is the global fallback.
type EntityStatsMap map[string]EntityStats

const defaultStatsKey = "default"

// defaultEntityStats is the degraded-mode fallback distribution
var defaultEntityStats = EntityStats{Mean: 50_000_000, Std: 20_000_000}

// Lookup returns the statistics for an entity, falling back to the global
// default entry and finally to the built-in degraded-mode values.
func (m EntityStatsMap) Lookup(entityID string) EntityStats {
	if stats, ok := m[entityID]; ok {
		return stats
	}
	if stats, ok := m[defaultStatsKey]; ok {
		return stats
	}
	return defaultEntityStats
}

// ArtifactSet holds the pre-trained model artifacts. Loaded once at startup
// and immutable thereafter; nil members mean the component is unavailable.
type ArtifactSet struct {
	Stats     EntityStatsMap
	Forest    *Forest
	Centroid  []float64
	Explainer *Explainer
}

// Degraded reports whether the statistical model artifact is missing and the
// z-score proxy must substitute for it
func (a *ArtifactSet) Degraded() bool {
	return a.Forest == nil
}

// LoadArtifacts reads the model artifacts from dir. It never fails: a missing
// or corrupt statistical model activates degraded mode for the process
// lifetime, and optional artifacts simply stay nil.
func LoadArtifacts(dir string) *ArtifactSet {
	set := &ArtifactSet{}

	if _, err := os.Stat(dir); err != nil {
		slog.Warn("Artifacts directory not found, activating degraded mode", "dir", dir, "error", err)
		set.Stats = EntityStatsMap{defaultStatsKey: defaultEntityStats}
		return set
	}

	if err := loadJSON(filepath.Join(dir, entityStatsFile), &set.Stats); err != nil {
		slog.Warn("Entity statistics unavailable, using defaults", "error", err)
		set.Stats = EntityStatsMap{defaultStatsKey: defaultEntityStats}
	}

	var forest Forest
	if err := loadJSON(filepath.Join(dir, forestFile), &forest); err != nil {
		slog.Warn("Isolation forest unavailable, activating degraded mode", "error", err)
	} else if err := forest.validate(); err != nil {
		slog.Warn("Isolation forest artifact invalid, activating degraded mode", "error", err)
	} else {
		set.Forest = &forest
		slog.Info("Isolation forest loaded", "trees", len(forest.Trees), "sample_size", forest.SampleSize)
	}

	if err := loadJSON(filepath.Join(dir, centroidFile), &set.Centroid); err != nil {
		slog.Warn("Semantic centroid unavailable", "error", err)
		set.Centroid = nil
	}

	var explainer Explainer
	if err := loadJSON(filepath.Join(dir, explainerFile), &explainer); err != nil {
		slog.Warn("Explainer unavailable, continuing without attribution", "error", err)
	} else if err := explainer.validate(); err != nil {
		slog.Warn("Explainer artifact invalid, continuing without attribution", "error", err)
	} else {
		set.Explainer = &explainer
	}

	return set
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", filepath.Base(path), err)
	}

	return nil
}
