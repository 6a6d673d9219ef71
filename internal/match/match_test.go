package match

import (
	"strings"
	"testing"

	"github.com/meshintel/preprint-digest/pkg/types"
)

func record() types.PaperRecord {
	return types.PaperRecord{
		ID:       "10.1101/2024.01.15.575678v1",
		DOI:      "10.1101/2024.01.15.575678",
		Title:    "Single-cell RNA-seq reveals CRISPR screen dynamics",
		Abstract: "We profile gene expression using RNA-seq after CRISPR perturbation.",
		Category: "genomics",
		Authors:  []string{"Smith, J.", "Johnson, A."},
		Date:     "2024-01-15",
	}
}

// --- exact topic matching ---

func TestExactMatchCaseInsensitive(t *testing.T) {
	q := types.Query{Topics: []string{"crispr"}}
	if !Matches(record(), q) {
		t.Error("lowercase topic should match uppercase text")
	}
}

func TestExactMatchLiteralMetacharacters(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  bool
	}{
		{"hyphenated topic matches verbatim", "RNA-seq", true},
		{"hyphen is not a pattern wildcard", "RNAxseq", false},
		{"parentheses do not break compilation", "screen (dynamics", false},
		{"dot is literal", "RNA.seq", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := types.Query{Topics: []string{tt.topic}}
			if got := Matches(record(), q); got != tt.want {
				t.Errorf("Matches(topic=%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}

func TestExactMatchAgainstCategory(t *testing.T) {
	q := types.Query{Topics: []string{"genomics"}}
	if !Matches(record(), q) {
		t.Error("topic should match the category field")
	}
}

// --- fuzzy topic matching ---

func TestFuzzyMatchFormattingVariants(t *testing.T) {
	rec := record()
	rec.Title = "Profiling with RNA seq in single cells"
	rec.Abstract = ""

	q := types.Query{Topics: []string{"RNA-seq"}, Fuzzy: true}
	if !Matches(rec, q) {
		t.Error("fuzzy topic RNA-seq should match text containing 'RNA seq'")
	}
}

func TestFuzzyMatchThreshold(t *testing.T) {
	rec := types.PaperRecord{
		Title: "chromatin accessibility landscape of early development",
	}

	tests := []struct {
		name  string
		topic string
		want  bool
	}{
		// 2/2 non-trivial words present.
		{"all words present", "chromatin accessibility", true},
		// 2/3 words = 66% < 70%.
		{"below threshold", "chromatin accessibility methylation", false},
		// 3/4 = 75% >= 70%.
		{"above threshold", "chromatin accessibility landscape methylation", true},
		// "of" is short and auto-matches: 3/3.
		{"short words auto-match", "chromatin of accessibility", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := types.Query{Topics: []string{tt.topic}, Fuzzy: true}
			if got := Matches(rec, q); got != tt.want {
				t.Errorf("Matches(topic=%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}

// --- multi-topic combination ---

func TestTopicMatchModes(t *testing.T) {
	tests := []struct {
		name   string
		topics []string
		mode   types.MatchMode
		want   bool
	}{
		{"all mode, every topic matches", []string{"CRISPR", "RNA-seq"}, types.MatchAll, true},
		{"all mode, one topic missing", []string{"CRISPR", "proteomics"}, types.MatchAll, false},
		{"any mode, one topic matches", []string{"CRISPR", "proteomics"}, types.MatchAny, true},
		{"any mode, no topic matches", []string{"metabolomics", "proteomics"}, types.MatchAny, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := types.Query{Topics: tt.topics, TopicMatch: tt.mode}
			if got := Matches(record(), q); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- author matching ---

func TestAuthorSubstringMatch(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		mode    types.MatchMode
		want    bool
	}{
		{"last name", []string{"Smith"}, types.MatchAny, true},
		{"case insensitive", []string{"smith"}, types.MatchAny, true},
		{"all mode both present", []string{"Smith", "Johnson"}, types.MatchAll, true},
		{"all mode one absent", []string{"Smith", "Garcia"}, types.MatchAll, false},
		{"any mode one absent", []string{"Smith", "Garcia"}, types.MatchAny, true},
		{"absent author", []string{"Garcia"}, types.MatchAny, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := types.Query{Authors: tt.authors, AuthorMatch: tt.mode}
			if got := Matches(record(), q); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorNamesStayWhole(t *testing.T) {
	// "Smith, J." must be one name, not a bag of characters: a single-letter
	// query hitting an initial is fine, but a name absent from the list must
	// not match via scattered characters.
	rec := record()
	q := types.Query{Authors: []string{"John Smithson"}}
	if Matches(rec, q) {
		t.Error("author list should not match via character-level splitting")
	}
}

// --- topic AND author combination ---

func TestTopicAndAuthorCombineWithAnd(t *testing.T) {
	q := types.Query{Topics: []string{"CRISPR"}, Authors: []string{"Smith"}}
	if !Matches(record(), q) {
		t.Error("matching topic and author should both hold")
	}

	q.Authors = []string{"Garcia"}
	if Matches(record(), q) {
		t.Error("topic match must not compensate for an author miss")
	}
}

// --- degenerate metadata ---

func TestEmptyRecordNeverMatches(t *testing.T) {
	q := types.Query{Topics: []string{"CRISPR"}}
	if Matches(types.PaperRecord{}, q) {
		t.Error("record with no metadata should not match")
	}

	q = types.Query{Authors: []string{"Smith"}}
	if Matches(types.PaperRecord{}, q) {
		t.Error("record with no authors should not match an author query")
	}
}

func TestSearchableTextWeighting(t *testing.T) {
	rec := record()
	text := SearchableText(rec)

	if got := strings.Count(text, "genomics"); got != 5 {
		t.Errorf("category repeated %d times, want 5", got)
	}
	if !strings.Contains(text, "Smith, J.") {
		t.Error("searchable text should include author names")
	}
}
