// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match decides whether a paper's metadata satisfies a topic/author
// query. Matching is a pure predicate over in-memory records; it never
// touches the network.
package match

import (
	"regexp"
	"strings"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// fuzzyThreshold is the fraction of a topic's non-trivial words that must be
// found in the searchable text for a fuzzy match. Tuned so variants like
// "RNA-seq" vs "RNA seq" still match.
const fuzzyThreshold = 0.7

// nonWordRun matches runs of pattern metacharacters and punctuation inside a
// topic word. Each run becomes a single-character wildcard.
var nonWordRun = regexp.MustCompile(`[^\w]+`)

// Matches reports whether the record satisfies the query's topic and author
// criteria. Topic and author criteria, when both present, combine with
// logical AND regardless of each one's internal ALL/ANY mode. A record with
// no matchable metadata never matches and never panics.
func Matches(rec types.PaperRecord, q types.Query) bool {
	return matchesTopics(rec, q) && matchesAuthors(rec, q)
}

func matchesTopics(rec types.PaperRecord, q types.Query) bool {
	if len(q.Topics) == 0 {
		return true
	}

	text := SearchableText(rec)
	matched := 0
	for _, topic := range q.Topics {
		ok := false
		if q.Fuzzy {
			ok = topicMatchesFuzzy(topic, text)
		} else {
			ok = topicMatchesExact(topic, text)
		}
		if ok {
			matched++
		} else if mode(q.TopicMatch, types.MatchAll) == types.MatchAll {
			return false
		}
	}

	if mode(q.TopicMatch, types.MatchAll) == types.MatchAll {
		return matched == len(q.Topics)
	}
	return matched > 0
}

func matchesAuthors(rec types.PaperRecord, q types.Query) bool {
	if len(q.Authors) == 0 {
		return true
	}

	names := make([]string, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		a = strings.TrimSpace(strings.ToLower(a))
		if a != "" {
			names = append(names, a)
		}
	}

	matched := 0
	for _, want := range q.Authors {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		found := false
		for _, name := range names {
			if strings.Contains(name, want) {
				found = true
				break
			}
		}
		if found {
			matched++
		} else if mode(q.AuthorMatch, types.MatchAny) == types.MatchAll {
			return false
		}
	}

	if mode(q.AuthorMatch, types.MatchAny) == types.MatchAll {
		return matched == len(q.Authors)
	}
	return matched > 0
}

// topicMatchesExact reports whether the topic appears as a case-insensitive
// substring of the searchable text. The topic is quoted before compilation
// so metacharacters like hyphens and dots are treated literally.
func topicMatchesExact(topic, text string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(topic))
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// topicMatchesFuzzy splits the topic into words and matches each word with
// runs of special characters replaced by a single-character wildcard. Words
// shorter than three characters count as matched automatically. The topic
// matches when at least 70% of its words are found.
func topicMatchesFuzzy(topic, text string) bool {
	words := strings.Fields(strings.ToLower(topic))
	if len(words) == 0 {
		return false
	}

	lower := strings.ToLower(text)
	matched := 0
	for _, word := range words {
		if len(word) < 3 {
			matched++
			continue
		}
		pattern := nonWordRun.ReplaceAllString(word, ".")
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(lower) {
			matched++
		}
	}

	return float64(matched)/float64(len(words)) >= fuzzyThreshold
}

// SearchableText assembles the metadata text topics are matched against.
// Category is repeated five times and type/collection/tags three times so
// subject-tag hits outweigh plain-text hits when topics are scored together.
func SearchableText(rec types.PaperRecord) string {
	var b strings.Builder
	b.WriteString(rec.Title)
	b.WriteString(" ")
	b.WriteString(rec.Abstract)

	if rec.Category != "" {
		b.WriteString(strings.Repeat(" "+rec.Category, 5))
	}
	if rec.PaperType != "" {
		b.WriteString(strings.Repeat(" "+rec.PaperType, 3))
	}
	if rec.Collection != "" {
		b.WriteString(strings.Repeat(" "+rec.Collection, 3))
	}
	if len(rec.Tags) > 0 {
		tags := strings.Join(rec.Tags, " ")
		b.WriteString(strings.Repeat(" "+tags, 3))
	}
	for _, a := range rec.Authors {
		b.WriteString(" ")
		b.WriteString(a)
	}

	return b.String()
}

// mode applies a default when the query leaves a match mode unset.
func mode(m, def types.MatchMode) types.MatchMode {
	if m == "" {
		return def
	}
	return m
}
