// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders candidate papers by a single metric or a weighted
// combination of normalized metrics.
package rank

import (
	"sort"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// Rank returns the records ordered per the spec. The input slice is not
// modified. Ties break by identifier for determinism, and a missing or
// malformed publication date sorts as the oldest possible date.
func Rank(records []types.PaperRecord, spec types.RankingSpec) []types.PaperRecord {
	out := make([]types.PaperRecord, len(records))
	copy(out, records)

	key := metricKey(out, spec)

	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if ki != kj {
			return ki < kj
		}
		return out[i].ID < out[j].ID
	})

	// Direction reverses the final ordering only.
	if direction(spec) == types.Descending {
		reverse(out)
	}
	return out
}

// metricKey builds the per-record sort key for the spec's metric. Combined
// scores are computed once up front so sorting stays O(n log n).
func metricKey(records []types.PaperRecord, spec types.RankingSpec) func(types.PaperRecord) float64 {
	switch spec.Metric {
	case types.RankByDownloads:
		return func(p types.PaperRecord) float64 { return float64(p.Metrics.Downloads) }
	case types.RankByAbstractViews:
		return func(p types.PaperRecord) float64 { return float64(p.Metrics.AbstractViews) }
	case types.RankByAttention:
		return func(p types.PaperRecord) float64 { return p.Metrics.AttentionScore }
	case types.RankByCombined:
		scores := combinedScores(records, spec.Weights)
		return func(p types.PaperRecord) float64 { return scores[p.ID] }
	default:
		// Date ranking; the zero time for malformed dates sorts oldest.
		return func(p types.PaperRecord) float64 { return float64(p.PublishedAt().Unix()) }
	}
}

// combinedScores computes Σ(weight × value/max) per record. Each metric is
// normalized by its maximum observed value across the candidate set so
// differently scaled metrics are comparable. A metric whose maximum is zero
// contributes zero to every score instead of dividing by zero.
func combinedScores(records []types.PaperRecord, weights map[string]float64) map[string]float64 {
	if len(weights) == 0 {
		weights = types.DefaultRankWeights()
	}

	maxima := map[string]float64{}
	for _, p := range records {
		for name := range weights {
			if v := metricValue(p, name); v > maxima[name] {
				maxima[name] = v
			}
		}
	}

	scores := make(map[string]float64, len(records))
	for _, p := range records {
		score := 0.0
		for name, w := range weights {
			max := maxima[name]
			if max == 0 {
				continue
			}
			score += w * metricValue(p, name) / max
		}
		scores[p.ID] = score
	}
	return scores
}

// metricValue reads one named metric off a record. Unknown names read zero.
func metricValue(p types.PaperRecord, name string) float64 {
	switch name {
	case types.WeightDownloads:
		return float64(p.Metrics.Downloads)
	case types.WeightAbstractViews:
		return float64(p.Metrics.AbstractViews)
	case types.WeightAttention:
		return p.Metrics.AttentionScore
	case types.WeightTwitter:
		return float64(p.Metrics.TwitterCount)
	}
	return 0
}

func direction(spec types.RankingSpec) types.RankDirection {
	if spec.Direction == "" {
		return types.Descending
	}
	return spec.Direction
}

func reverse(records []types.PaperRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
