// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls plain text out of downloaded PDFs with pluggable
// backends and prepares it for summarization.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// TextExtractor reads text from a PDF. Backends wrap external tools so the
// whole document never has to sit in memory at once.
type TextExtractor interface {
	// PageCount returns the number of pages in the PDF.
	PageCount(ctx context.Context, pdfPath string) (int, error)

	// ExtractPage returns the plain text of one page (1-based).
	ExtractPage(ctx context.Context, pdfPath string, page int) (string, error)
}

// Text extracts the document page by page. maxPages caps extraction; zero
// extracts every page. Individual page failures are logged and skipped; the
// extraction fails only when no page yields any text.
func Text(ctx context.Context, ex TextExtractor, pdfPath string, maxPages int, log zerolog.Logger) (string, error) {
	total, err := ex.PageCount(ctx, pdfPath)
	if err != nil {
		return "", fmt.Errorf("counting pages in %s: %w", pdfPath, err)
	}
	if total <= 0 {
		return "", fmt.Errorf("%s has no pages", pdfPath)
	}
	if maxPages > 0 && total > maxPages {
		log.Info().Int("pages", total).Int("limit", maxPages).Str("pdf", pdfPath).
			Msg("limiting extraction to first pages")
		total = maxPages
	}

	var b strings.Builder
	failed := 0
	for page := 1; page <= total; page++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		text, err := ex.ExtractPage(ctx, pdfPath, page)
		if err != nil {
			failed++
			log.Warn().Err(err).Int("page", page).Str("pdf", pdfPath).Msg("page extraction failed")
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s (%d of %d pages failed)", pdfPath, failed, total)
	}
	return b.String(), nil
}

// Chunk splits text into pieces of at most maxChars, preferring paragraph
// boundaries and falling back to a hard split for oversized paragraphs.
// Empty text yields no chunks.
func Chunk(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Oversized paragraph: flush and hard-split it.
		if len(para) > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			for len(para) > maxChars {
				chunks = append(chunks, para[:maxChars])
				para = para[maxChars:]
			}
			if para != "" {
				current.WriteString(para)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
