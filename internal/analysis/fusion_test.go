package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseScores(t *testing.T) {
	tests := []struct {
		name           string
		statistical    float64
		semantic       float64
		semanticLoaded bool
		expected       float64
	}{
		{
			name:           "semantic absent uses statistical alone",
			statistical:    0.8,
			semantic:       0.0,
			semanticLoaded: false,
			expected:       0.8,
		},
		{
			name:           "semantic loaded blends 70/30",
			statistical:    1.0,
			semantic:       0.5,
			semanticLoaded: true,
			expected:       0.85,
		},
		{
			name:           "semantic zero still dilutes when loaded",
			statistical:    1.0,
			semantic:       0.0,
			semanticLoaded: true,
			expected:       0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FuseScores(tt.statistical, tt.semantic, tt.semanticLoaded)
			assert.InDelta(t, tt.expected, result, 1e-9)
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected Tier
	}{
		{0.0, TierLow},
		{0.29, TierLow},
		{0.3, TierMedium},
		{0.49, TierMedium},
		{0.5, TierHigh},
		{0.69, TierHigh},
		{0.7, TierCritical},
		{1.0, TierCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TierFor(tt.score), "score %v", tt.score)
	}
}
