// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// MatchMode selects how multiple topics or authors combine.
type MatchMode string

const (
	// MatchAll requires every criterion to match independently.
	MatchAll MatchMode = "all"
	// MatchAny requires at least one criterion to match.
	MatchAny MatchMode = "any"
)

// Query is a user-specified matching request against paper metadata.
type Query struct {
	// Topics are the topic strings to search for, possibly empty.
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// TopicMatch combines multiple topics (default MatchAll).
	TopicMatch MatchMode `json:"topic_match" yaml:"topic_match"`

	// Authors are the author names to search for, possibly empty.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// AuthorMatch combines multiple authors (default MatchAny).
	AuthorMatch MatchMode `json:"author_match" yaml:"author_match"`

	// Fuzzy enables threshold-based word matching tolerant of formatting
	// variation (hyphens, dots) in topic strings.
	Fuzzy bool `json:"fuzzy" yaml:"fuzzy"`

	// DaysBack is the search window in days counted back from now.
	DaysBack int `json:"days_back" yaml:"days_back"`

	// MaxResults caps the number of papers returned after ranking.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Validate reports whether the query can be executed. A query with neither
// topics nor authors is rejected before any network call.
func (q Query) Validate() error {
	if len(q.Topics) == 0 && len(q.Authors) == 0 {
		return fmt.Errorf("query requires at least one topic or author")
	}
	switch q.TopicMatch {
	case "", MatchAll, MatchAny:
	default:
		return fmt.Errorf("invalid topic match mode %q", q.TopicMatch)
	}
	switch q.AuthorMatch {
	case "", MatchAll, MatchAny:
	default:
		return fmt.Errorf("invalid author match mode %q", q.AuthorMatch)
	}
	if q.DaysBack < 0 {
		return fmt.Errorf("days back must be non-negative, got %d", q.DaysBack)
	}
	return nil
}

// RankMetric names a ranking criterion.
type RankMetric string

const (
	RankByDate          RankMetric = "date"
	RankByDownloads     RankMetric = "downloads"
	RankByAbstractViews RankMetric = "abstract_views"
	RankByAttention     RankMetric = "attention"
	RankByCombined      RankMetric = "combined"
)

// RankDirection orders the final sequence.
type RankDirection string

const (
	Ascending  RankDirection = "asc"
	Descending RankDirection = "desc"
)

// Weight keys accepted in RankingSpec.Weights for combined ranking.
const (
	WeightDownloads     = "downloads"
	WeightAbstractViews = "abstract_views"
	WeightAttention     = "attention"
	WeightTwitter       = "twitter"
)

// RankingSpec describes how to order matched records.
type RankingSpec struct {
	// Metric selects the ranking criterion.
	Metric RankMetric `json:"metric" yaml:"metric"`

	// Direction reverses the final ordering only; it never changes which
	// metric or weights apply.
	Direction RankDirection `json:"direction" yaml:"direction"`

	// Weights maps metric name to weight for combined ranking. Weights
	// need not sum to 1.
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// DefaultRankWeights mirrors the combined-ranking defaults: downloads
// dominate, attention and views contribute, tweets nudge.
func DefaultRankWeights() map[string]float64 {
	return map[string]float64{
		WeightDownloads:     0.4,
		WeightAbstractViews: 0.2,
		WeightAttention:     0.3,
		WeightTwitter:       0.1,
	}
}

// Validate checks the spec. Combined ranking accepts an empty weight map
// (the defaults apply) but rejects explicit weights that are all zero.
func (s RankingSpec) Validate() error {
	switch s.Metric {
	case RankByDate, RankByDownloads, RankByAbstractViews, RankByAttention:
	case RankByCombined:
		if len(s.Weights) > 0 {
			nonZero := false
			for _, w := range s.Weights {
				if w != 0 {
					nonZero = true
					break
				}
			}
			if !nonZero {
				return fmt.Errorf("combined ranking requires at least one non-zero weight")
			}
		}
	case "":
		return fmt.Errorf("ranking metric is required")
	default:
		return fmt.Errorf("unknown ranking metric %q", s.Metric)
	}
	switch s.Direction {
	case "", Ascending, Descending:
	default:
		return fmt.Errorf("invalid rank direction %q", s.Direction)
	}
	return nil
}

// NeedsMetrics reports whether the spec requires usage metrics to be
// fetched before ranking.
func (s RankingSpec) NeedsMetrics() bool {
	switch s.Metric {
	case RankByDownloads, RankByAbstractViews, RankByAttention, RankByCombined:
		return true
	}
	return false
}
