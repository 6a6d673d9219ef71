// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// dateFmt is the wire format bioRxiv uses for publication dates.
const dateFmt = "2006-01-02"

// UsageMetrics holds per-paper readership and attention counters. All
// fields default to zero when the metric source is unavailable.
type UsageMetrics struct {
	// Downloads is the number of PDF downloads reported by the server.
	Downloads int `json:"downloads" yaml:"downloads"`

	// AbstractViews is the number of abstract page views.
	AbstractViews int `json:"abstract_views" yaml:"abstract_views"`

	// FullTextViews is the number of full-text page views.
	FullTextViews int `json:"full_text_views" yaml:"full_text_views"`

	// AttentionScore is the Altmetric attention score, 0 when the
	// Altmetric source is unconfigured.
	AttentionScore float64 `json:"attention_score" yaml:"attention_score"`

	// TwitterCount is the number of tweets citing the paper.
	TwitterCount int `json:"twitter_count" yaml:"twitter_count"`
}

// PaperRecord is one discovered preprint. Records are built from an API
// response or, under fallback, from scraped listing HTML, and are immutable
// once ranked.
//
// Two records sharing a DOI but carrying different version suffixes are
// distinct papers; the pipeline never deduplicates across versions.
type PaperRecord struct {
	// ID is the stable identifier: the DOI plus a version suffix when the
	// source reported one (e.g. "10.1101/2024.01.15.575678v2").
	ID string `json:"id" yaml:"id"`

	// DOI is the bare DOI without version suffix.
	DOI string `json:"doi" yaml:"doi"`

	// Version is the preprint version suffix ("1", "2", ...), empty when unknown.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order. Each entry is one full
	// name; comma-joined author strings are split on the source's
	// delimiter at parse time, never into characters.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract, possibly empty under fallback.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Category is the subject area (e.g. "bioinformatics").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// PaperType is the source's type field (e.g. "new results").
	PaperType string `json:"type,omitempty" yaml:"type,omitempty"`

	// Collection is the source's collection field when present.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`

	// Tags holds any extra keywords attached by the source.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Date is the publication date in YYYY-MM-DD form. May be empty or
	// malformed; use PublishedAt for comparisons.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	// Metrics holds readership counters, populated on demand before
	// metric-based ranking.
	Metrics UsageMetrics `json:"metrics" yaml:"metrics"`
}

// PublishedAt parses the record's date. A missing or malformed date returns
// the zero time so comparisons sort it as the oldest possible date instead
// of failing.
func (p PaperRecord) PublishedAt() time.Time {
	t, err := time.Parse(dateFmt, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FirstAuthor returns the lead author formatted as "LastName F", or
// "Unknown" when the author list is empty.
func (p PaperRecord) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return "Unknown"
	}
	name := strings.TrimSpace(p.Authors[0])
	if name == "" {
		return "Unknown"
	}

	// Source names arrive either as "Last, F." or "First Last".
	if last, rest, ok := strings.Cut(name, ","); ok {
		initial := firstLetter(strings.TrimSpace(rest))
		if initial == "" {
			return strings.TrimSpace(last)
		}
		return strings.TrimSpace(last) + " " + initial
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0]
	}
	initial := firstLetter(parts[0])
	if initial == "" {
		return parts[len(parts)-1]
	}
	return parts[len(parts)-1] + " " + initial
}

// ShortTitle returns the first ten words of the title, with an ellipsis
// when the title is longer.
func (p PaperRecord) ShortTitle() string {
	words := strings.Fields(p.Title)
	if len(words) == 0 {
		return "Unknown"
	}
	if len(words) <= 10 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:10], " ") + "..."
}

func firstLetter(s string) string {
	for _, r := range s {
		if r == ' ' || r == '.' {
			continue
		}
		return string(r)
	}
	return ""
}
