package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// fakeProvider records calls and serves scripted replies.
type fakeProvider struct {
	calls   []string
	replies func(call int, system, user string) (string, error)
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls = append(f.calls, user)
	return f.replies(len(f.calls), system, user)
}

func (f *fakeProvider) Name() string { return "fake" }

func record() types.PaperRecord {
	return types.PaperRecord{
		ID:       "10.1101/2024.01.15.575678v1",
		DOI:      "10.1101/2024.01.15.575678",
		Title:    "A paper about chromatin",
		Authors:  []string{"Smith, J.", "Doe, A."},
		Abstract: "We study chromatin.",
		Date:     "2024-01-15",
	}
}

func TestSummarizeShortPaperSingleCall(t *testing.T) {
	fake := &fakeProvider{replies: func(int, string, string) (string, error) {
		return "## Key Findings\n\nImportant results.", nil
	}}
	s := NewSummarizerWith(fake, "", zerolog.Nop())

	out, err := s.Summarize(context.Background(), record(), "short paper text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(fake.calls))
	}
	if !strings.Contains(fake.calls[0], "short paper text") {
		t.Error("paper text missing from prompt")
	}
	if !strings.Contains(fake.calls[0], "Title: A paper about chromatin") {
		t.Error("metadata missing from prompt")
	}

	// The summary leads with the metadata header.
	if !strings.HasPrefix(out, "# A paper about chromatin\n") {
		t.Errorf("summary header missing: %q", out[:40])
	}
	if !strings.Contains(out, "**DOI:** 10.1101/2024.01.15.575678") {
		t.Error("DOI missing from header")
	}
	if !strings.Contains(out, "Important results.") {
		t.Error("provider output missing from summary")
	}
}

func TestSummarizeLongPaperFoldsChunks(t *testing.T) {
	longText := strings.Repeat("paragraph of findings\n\n", 2000)

	fake := &fakeProvider{replies: func(call int, system, user string) (string, error) {
		if strings.Contains(user, "Part Summaries:") {
			return "consolidated summary", nil
		}
		return fmt.Sprintf("part summary %d", call), nil
	}}
	s := NewSummarizerWith(fake, "", zerolog.Nop())

	out, err := s.Summarize(context.Background(), record(), longText)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(fake.calls) < 3 {
		t.Fatalf("expected chunk calls plus consolidation, got %d calls", len(fake.calls))
	}
	if !strings.Contains(fake.calls[0], "part 1 of") {
		t.Error("chunk prompts should number the parts")
	}
	if !strings.Contains(out, "consolidated summary") {
		t.Error("consolidated output missing")
	}
	if strings.Contains(out, "part summary 1") {
		t.Error("partial summaries should be replaced by the consolidation")
	}
}

func TestSummarizeFallsBackToConcatenation(t *testing.T) {
	longText := strings.Repeat("paragraph of findings\n\n", 2000)

	fake := &fakeProvider{replies: func(call int, system, user string) (string, error) {
		if strings.Contains(user, "Part Summaries:") {
			return "", &APIError{Provider: "fake", StatusCode: 500, Message: "overloaded"}
		}
		return fmt.Sprintf("part summary %d", call), nil
	}}
	s := NewSummarizerWith(fake, "", zerolog.Nop())

	out, err := s.Summarize(context.Background(), record(), longText)
	if err != nil {
		t.Fatalf("consolidation failure must not fail the summary: %v", err)
	}
	if !strings.Contains(out, "Combined Summary from Multiple Parts") {
		t.Error("fallback banner missing")
	}
	if !strings.Contains(out, "part summary 1") || !strings.Contains(out, "part summary 2") {
		t.Error("partial summaries missing from fallback output")
	}
}

func TestSummarizeQuotaErrorPropagates(t *testing.T) {
	quotaErr := &APIError{Provider: "fake", StatusCode: 429, Code: "insufficient_quota", Message: "quota"}
	fake := &fakeProvider{replies: func(int, string, string) (string, error) {
		return "", quotaErr
	}}
	s := NewSummarizerWith(fake, "", zerolog.Nop())

	_, err := s.Summarize(context.Background(), record(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsQuota(err) {
		t.Errorf("quota classification lost through wrapping: %v", err)
	}
}

func TestSummarizeToleratesPartialChunkFailures(t *testing.T) {
	longText := strings.Repeat("paragraph of findings\n\n", 2000)

	fake := &fakeProvider{replies: func(call int, system, user string) (string, error) {
		if strings.Contains(user, "Part Summaries:") {
			return "consolidated", nil
		}
		if call == 1 {
			return "", errors.New("blip")
		}
		return fmt.Sprintf("part %d", call), nil
	}}
	s := NewSummarizerWith(fake, "", zerolog.Nop())

	if _, err := s.Summarize(context.Background(), record(), longText); err != nil {
		t.Fatalf("one failed chunk must not fail the summary: %v", err)
	}
}

func TestCustomPromptPlaceholders(t *testing.T) {
	fake := &fakeProvider{replies: func(int, string, string) (string, error) {
		return "ok", nil
	}}
	s := NewSummarizerWith(fake, "Summarize {TITLE} by {AUTHORS} ({DOI})", zerolog.Nop())

	if _, err := s.Summarize(context.Background(), record(), "text"); err != nil {
		t.Fatal(err)
	}
	call := fake.calls[0]
	if !strings.Contains(call, "Summarize A paper about chromatin by Smith, J., Doe, A. (10.1101/2024.01.15.575678)") {
		t.Errorf("placeholders not substituted: %q", call)
	}
}

func TestPromptDegenerateMetadata(t *testing.T) {
	m := metadataFor(types.PaperRecord{ID: "x"})
	rendered := renderPrompt(defaultPrompt, m)
	for _, want := range []string{"Unknown Title", "Unknown Authors", "Unknown Date", "No abstract available", "No DOI available"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("missing %q in rendered prompt", want)
		}
	}
}
