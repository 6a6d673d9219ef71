// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/internal/extract"
	"github.com/meshintel/preprint-digest/pkg/types"
)

// maxChunkChars bounds the paper text sent in one provider call, roughly
// four thousand tokens.
const maxChunkChars = 16000

// Summarizer folds paper text through a provider into one Markdown summary.
type Summarizer struct {
	provider Provider
	template string
	log      zerolog.Logger
}

// NewSummarizer builds a summarizer for cfg, loading the custom prompt
// template when one is configured.
func NewSummarizer(cfg types.SummaryConfig, log zerolog.Logger) (*Summarizer, error) {
	provider, err := New(cfg)
	if err != nil {
		return nil, err
	}
	template, err := LoadPrompt(cfg.PromptPath)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, template: template, log: log}, nil
}

// NewSummarizerWith wires an explicit provider, for tests and callers that
// construct providers themselves.
func NewSummarizerWith(provider Provider, template string, log zerolog.Logger) *Summarizer {
	if template == "" {
		template = defaultPrompt
	}
	return &Summarizer{provider: provider, template: template, log: log}
}

// Summarize produces a Markdown summary of paperText. Short papers go
// through one provider call; long papers are summarized chunk by chunk and
// consolidated in a final pass. When consolidation fails the partial
// summaries are concatenated instead of discarding the work. The returned
// summary always starts with the paper's metadata header.
func (s *Summarizer) Summarize(ctx context.Context, rec types.PaperRecord, paperText string) (string, error) {
	meta := metadataFor(rec)
	prefix := renderPrompt(s.template, meta)

	chunks := extract.Chunk(paperText, maxChunkChars)
	if len(chunks) == 0 {
		return "", fmt.Errorf("no text to summarize for %s", rec.ID)
	}

	var summary string
	if len(chunks) == 1 {
		s.log.Info().Str("paper", rec.ID).Str("provider", s.provider.Name()).Msg("generating summary")
		out, err := s.provider.Complete(ctx, systemPrompt, prefix+"\n\nFull Text:\n"+chunks[0])
		if err != nil {
			return "", fmt.Errorf("summarizing %s: %w", rec.ID, err)
		}
		summary = out
	} else {
		s.log.Info().Str("paper", rec.ID).Int("chunks", len(chunks)).Msg("paper exceeds context, summarizing in parts")
		parts, err := s.summarizeChunks(ctx, rec, prefix, chunks)
		if err != nil {
			return "", err
		}
		summary = s.consolidate(ctx, meta, parts)
	}

	return summaryHeader(meta) + summary, nil
}

// summarizeChunks runs one call per chunk. Individual chunk failures are
// tolerated; quota errors and a fully failed paper are not.
func (s *Summarizer) summarizeChunks(ctx context.Context, rec types.PaperRecord, prefix string, chunks []string) ([]string, error) {
	var parts []string
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Debug().Str("paper", rec.ID).Int("part", i+1).Int("of", len(chunks)).Msg("summarizing chunk")

		user := fmt.Sprintf("%s\n\nNote: This is part %d of %d of the paper.\n\nFull Text:\n%s",
			prefix, i+1, len(chunks), chunk)
		out, err := s.provider.Complete(ctx, systemPrompt, user)
		if err != nil {
			if IsQuota(err) {
				return nil, fmt.Errorf("summarizing %s part %d: %w", rec.ID, i+1, err)
			}
			s.log.Warn().Err(err).Str("paper", rec.ID).Int("part", i+1).Msg("chunk summary failed")
			continue
		}
		parts = append(parts, out)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("all %d chunk summaries failed for %s", len(chunks), rec.ID)
	}
	return parts, nil
}

// consolidate merges partial summaries in one final call, falling back to
// concatenation when the merge call fails.
func (s *Summarizer) consolidate(ctx context.Context, meta promptMetadata, parts []string) string {
	combined := strings.Join(parts, "\n\n")

	user := fmt.Sprintf(`You are provided with multiple summaries of different parts of the same scientific paper.
Combine these summaries into a single coherent summary that covers all the key aspects of the paper.
Remove any redundancies and ensure the final summary is well-structured.

Paper Title: %s
Authors: %s
Abstract: %s

Part Summaries:
%s`, meta.Title, meta.Authors, meta.Abstract, combined)

	out, err := s.provider.Complete(ctx, consolidationSystemPrompt, user)
	if err != nil {
		s.log.Warn().Err(err).Msg("consolidation failed, concatenating part summaries")
		return "# Combined Summary from Multiple Parts\n\n" + combined
	}
	return out
}
