package analysis

// Fusion weights and tier thresholds. Fixed constants of the design, not
// derived or tunable.
const (
	statisticalWeight = 0.7
	semanticWeight    = 0.3

	tierCriticalMin = 0.7
	tierHighMin     = 0.5
	tierMediumMin   = 0.3
)

// FuseScores combines the sub-scores into the final risk score. The semantic
// score only participates when the semantic model is loaded; otherwise the
// statistical score stands alone instead of being diluted by a zero.
func FuseScores(statistical, semantic float64, semanticLoaded bool) float64 {
	if !semanticLoaded {
		return statistical
	}
	return statisticalWeight*statistical + semanticWeight*semantic
}

// TierFor buckets a fused score into its discrete risk tier
func TierFor(score float64) Tier {
	switch {
	case score >= tierCriticalMin:
		return TierCritical
	case score >= tierHighMin:
		return TierHigh
	case score >= tierMediumMin:
		return TierMedium
	default:
		return TierLow
	}
}
