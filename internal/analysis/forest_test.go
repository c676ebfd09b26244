package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// singleLeafForest evaluates every input to the average path length, which
// yields a decision of exactly 0 (anomaly score 0.5)
func singleLeafForest() *Forest {
	return &Forest{
		SampleSize: 256,
		Trees: []Tree{
			{Nodes: []ForestNode{{Feature: -1, Size: 256}}},
		},
	}
}

func TestForestDecisionNeutral(t *testing.T) {
	forest := singleLeafForest()
	decision := forest.Decision(make([]float64, 9))
	assert.InDelta(t, 0.0, decision, 1e-9)
}

func TestForestDecisionSeparatesDepths(t *testing.T) {
	// Root splits on feature 0; left leaf is shallow (isolated fast, more
	// anomalous), right side descends one more level.
	forest := &Forest{
		SampleSize: 64,
		Trees: []Tree{
			{Nodes: []ForestNode{
				{Feature: 0, Threshold: 0, Left: 1, Right: 2},
				{Feature: -1, Size: 1},
				{Feature: 0, Threshold: 10, Left: 3, Right: 4},
				{Feature: -1, Size: 30},
				{Feature: -1, Size: 30},
			}},
		},
	}

	anomalous := forest.Decision([]float64{-5, 0, 0, 0, 0, 0, 0, 0, 0})
	normal := forest.Decision([]float64{5, 0, 0, 0, 0, 0, 0, 0, 0})

	assert.Less(t, anomalous, normal, "shorter path must score more anomalous")
	assert.GreaterOrEqual(t, anomalous, -0.5)
	assert.LessOrEqual(t, normal, 0.5)
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Greater(t, averagePathLength(256), averagePathLength(16))
}

func TestScoreStatistical(t *testing.T) {
	tests := []struct {
		name         string
		forest       *Forest
		fv           FeatureVector
		expectedRisk float64
	}{
		{
			name:         "normal mode maps neutral decision to mid risk",
			forest:       singleLeafForest(),
			fv:           FeatureVector{ZScoreValue: 0.5},
			expectedRisk: 0.5,
		},
		{
			name:         "degraded mode uses z-score proxy",
			forest:       nil,
			fv:           FeatureVector{ZScoreValue: 2.5},
			expectedRisk: 0.5,
		},
		{
			name:         "degraded mode proxy uses absolute z",
			forest:       nil,
			fv:           FeatureVector{ZScoreValue: -2.5},
			expectedRisk: 0.5,
		},
		{
			name:         "degraded mode clamps proxy at 1",
			forest:       nil,
			fv:           FeatureVector{ZScoreValue: -100},
			expectedRisk: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk, _ := scoreStatistical(tt.forest, tt.fv)
			assert.InDelta(t, tt.expectedRisk, risk, 1e-9)
		})
	}
}

func TestScoreStatisticalVeto(t *testing.T) {
	// z > 3 forces risk 1.0 in both modes, regardless of model output
	vetoed := FeatureVector{ZScoreValue: 3.01}

	risk, _ := scoreStatistical(singleLeafForest(), vetoed)
	assert.Equal(t, 1.0, risk, "veto must apply in normal mode")

	risk, _ = scoreStatistical(nil, vetoed)
	assert.Equal(t, 1.0, risk, "veto must apply in degraded mode")

	// Exactly 3 does not trip the veto
	risk, _ = scoreStatistical(nil, FeatureVector{ZScoreValue: 3.0})
	assert.InDelta(t, 0.6, risk, 1e-9)

	// Large negative z does not trip the veto in normal mode
	risk, _ = scoreStatistical(singleLeafForest(), FeatureVector{ZScoreValue: -10})
	assert.Less(t, risk, 1.0)
}

func TestScoreStatisticalDegradedRawOutput(t *testing.T) {
	risk, raw := scoreStatistical(nil, FeatureVector{ZScoreValue: 2.0})
	assert.InDelta(t, 0.4, risk, 1e-9)
	assert.InDelta(t, -0.4, raw, 1e-9, "raw output mirrors negated risk for schema compatibility")
}

func TestClip(t *testing.T) {
	assert.Equal(t, 0.0, clip(-1, 0, 1))
	assert.Equal(t, 1.0, clip(2, 0, 1))
	assert.Equal(t, 0.5, clip(0.5, 0, 1))
}
