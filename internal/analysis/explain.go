package analysis

import (
	"fmt"
	"sort"
)

// Explainer is a linear surrogate of the forest's decision, exported offline
// alongside the model. Each feature's contribution is its weight times the
// deviation from the training baseline.
type Explainer struct {
	Weights   []float64 `json:"weights"`
	Baselines []float64 `json:"baselines"`
}

func (e *Explainer) validate() error {
	if len(e.Weights) != len(featureNames) {
		return fmt.Errorf("explainer has %d weights, expected %d", len(e.Weights), len(featureNames))
	}
	if len(e.Baselines) != len(featureNames) {
		return fmt.Errorf("explainer has %d baselines, expected %d", len(e.Baselines), len(featureNames))
	}
	return nil
}

// Explain decomposes the statistical decision into per-feature signed
// contributions, sorted by absolute weight descending. A nil explainer or
// any shape mismatch yields an empty list; it never fails and never blocks
// score computation.
func Explain(explainer *Explainer, fv FeatureVector) []AttributionItem {
	if explainer == nil {
		return []AttributionItem{}
	}

	values := fv.Slice()
	if len(explainer.Weights) != len(values) || len(explainer.Baselines) != len(values) {
		return []AttributionItem{}
	}

	items := make([]AttributionItem, len(values))
	for i, v := range values {
		items[i] = AttributionItem{
			Feature: featureNames[i],
			Weight:  explainer.Weights[i] * (v - explainer.Baselines[i]),
		}
	}

	sort.SliceStable(items, func(a, b int) bool {
		return abs(items[a].Weight) > abs(items[b].Weight)
	})

	return items
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
