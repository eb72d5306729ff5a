package service

import (
	"math"

	"github.com/timmy/repobrief/internal/domain"
)

// ReadmeQuery is the canonical query every file is scored against.
const ReadmeQuery = "Explain the purpose, architecture, features, dependencies, setup instructions, and technical implementation of this repository"

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-norm or mismatched vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SelectMMR greedily picks up to cfg.TopK files by maximal marginal relevance.
// Inputs no larger than TopK are returned unchanged. Ties go to the earlier file.
func SelectMMR(files []domain.EmbeddedFile, query []float32, cfg domain.SelectionConfig) []domain.EmbeddedFile {
	cfg = cfg.Normalize()
	if len(files) <= cfg.TopK {
		return append([]domain.EmbeddedFile(nil), files...)
	}

	relevance := make([]float64, len(files))
	best := 0
	for i, f := range files {
		relevance[i] = CosineSimilarity(f.Vector, query)
		if relevance[i] > relevance[best] {
			best = i
		}
	}

	selected := []int{best}
	remaining := make([]int, 0, len(files)-1)
	for i := range files {
		if i != best {
			remaining = append(remaining, i)
		}
	}

	for len(selected) < cfg.TopK && len(remaining) > 0 {
		bestPos := 0
		bestScore := math.Inf(-1)
		for pos, idx := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := CosineSimilarity(files[idx].Vector, files[s].Vector); sim > maxSim {
					maxSim = sim
				}
			}
			score := cfg.Lambda*relevance[idx] - (1-cfg.Lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}
		selected = append(selected, remaining[bestPos])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]domain.EmbeddedFile, len(selected))
	for i, idx := range selected {
		out[i] = files[idx]
	}
	return out
}
