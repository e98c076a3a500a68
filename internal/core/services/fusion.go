package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

// fused is a candidate during fusion.
type fused struct {
	chunk    domain.Chunk
	score    float64
	semantic float64 // raw semantic score, -Inf when absent
}

// normalizeScores min-max scales scores to [0, 1]. A single score or a
// list of equal scores maps to 1.0.
func normalizeScores(results []domain.RetrievedChunk) map[string]float64 {
	out := make(map[string]float64, len(results))
	if len(results) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range results {
		lo = math.Min(lo, r.Score)
		hi = math.Max(hi, r.Score)
	}

	for _, r := range results {
		if _, seen := out[r.Chunk.ID]; seen {
			continue
		}
		if hi == lo {
			out[r.Chunk.ID] = 1.0
			continue
		}
		out[r.Chunk.ID] = (r.Score - lo) / (hi - lo)
	}
	return out
}

// weightedFusion combines min-max normalised scores as
// weight*semantic + (1-weight)*keyword. A chunk missing from one list
// scores 0 on that side.
func weightedFusion(semantic, keyword []domain.RetrievedChunk, weight float64, k int) []domain.RetrievedChunk {
	semNorm := normalizeScores(semantic)
	kwNorm := normalizeScores(keyword)

	candidates := collect(semantic, keyword)
	for id, c := range candidates {
		c.score = weight*semNorm[id] + (1-weight)*kwNorm[id]
	}
	return rank(candidates, k)
}

// reciprocalRankFusion scores each chunk as the sum of 1/(60+rank) over
// the lists it appears in, with rank starting at 1.
func reciprocalRankFusion(semantic, keyword []domain.RetrievedChunk, k int) []domain.RetrievedChunk {
	candidates := collect(semantic, keyword)
	for _, list := range [][]domain.RetrievedChunk{semantic, keyword} {
		seen := make(map[string]bool, len(list))
		for i, r := range list {
			if seen[r.Chunk.ID] {
				continue
			}
			seen[r.Chunk.ID] = true
			candidates[r.Chunk.ID].score += 1.0 / float64(rrfK+i+1)
		}
	}
	return rank(candidates, k)
}

// collect indexes the union of both lists by chunk id, preferring the
// semantic copy of a chunk.
func collect(semantic, keyword []domain.RetrievedChunk) map[string]*fused {
	candidates := make(map[string]*fused, len(semantic)+len(keyword))
	for _, r := range semantic {
		if c, ok := candidates[r.Chunk.ID]; ok {
			c.semantic = math.Max(c.semantic, r.Score)
			continue
		}
		candidates[r.Chunk.ID] = &fused{chunk: r.Chunk, semantic: r.Score}
	}
	for _, r := range keyword {
		if _, ok := candidates[r.Chunk.ID]; !ok {
			candidates[r.Chunk.ID] = &fused{chunk: r.Chunk, semantic: math.Inf(-1)}
		}
	}
	return candidates
}

// rank orders candidates by fused score, then raw semantic score, then
// id, and returns the top k tagged as hybrid.
func rank(candidates map[string]*fused, k int) []domain.RetrievedChunk {
	list := make([]*fused, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.semantic != b.semantic {
			return a.semantic > b.semantic
		}
		return a.chunk.ID < b.chunk.ID
	})

	if k < len(list) {
		list = list[:k]
	}
	out := make([]domain.RetrievedChunk, len(list))
	for i, c := range list {
		out[i] = domain.RetrievedChunk{
			Chunk:  c.chunk,
			Score:  c.score,
			Source: domain.SourceHybrid,
		}
	}
	return out
}
