package analysis

import (
	"hash/fnv"
	"math"
	"strings"
)

// Semantic scoring constants
const (
	semanticMaxChars      = 200
	semanticDistanceScale = 2.0
)

// Embedder projects contract descriptions into the centroid's vector space
// with a deterministic hashed character-trigram encoding. It stands in for
// the sentence-transformer used to compute the centroid offline; the
// distance-to-centroid contract is identical.
type Embedder struct {
	dim int
}

// NewEmbedder creates an embedder producing dim-dimensional normalized
// vectors. Returns nil when dim is not positive.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		return nil
	}
	return &Embedder{dim: dim}
}

// Embed encodes the first 200 characters of text into a fixed-size
// L2-normalized vector
func (e *Embedder) Embed(text string) []float64 {
	runes := []rune(strings.ToLower(text))
	if len(runes) > semanticMaxChars {
		runes = runes[:semanticMaxChars]
	}

	vec := make([]float64, e.dim)
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		sum := h.Sum32()

		idx := int(sum % uint32(e.dim))
		if sum&0x80000000 != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}

// scoreSemantic maps the Euclidean distance between the embedded description
// and the reference centroid onto [0,1] risk. A nil embedder or centroid
// contributes the neutral 0.0 and is excluded from fusion weighting.
func scoreSemantic(embedder *Embedder, centroid []float64, description string) (risk, distance float64) {
	if embedder == nil || len(centroid) == 0 {
		return 0, 0
	}

	emb := embedder.Embed(description)
	if len(emb) != len(centroid) {
		return 0, 0
	}

	sum := 0.0
	for i := range emb {
		d := emb[i] - centroid[i]
		sum += d * d
	}
	distance = math.Sqrt(sum)

	return clip(distance/semanticDistanceScale, 0, 1), distance
}
