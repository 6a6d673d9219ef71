// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the digest end to end: search, filter, rank,
// download, extract, summarize, persist. Papers are processed one at a
// time; one paper's failure never terminates the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/internal/extract"
	"github.com/meshintel/preprint-digest/internal/fetch"
	"github.com/meshintel/preprint-digest/internal/ledger"
	"github.com/meshintel/preprint-digest/internal/match"
	"github.com/meshintel/preprint-digest/internal/rank"
	"github.com/meshintel/preprint-digest/internal/summarize"
	"github.com/meshintel/preprint-digest/internal/upload"
	"github.com/meshintel/preprint-digest/pkg/types"
)

// Per-paper processing stages, used in failure reports and the ledger.
const (
	stageDownload  = "download"
	stageExtract   = "extract"
	stageSummarize = "summarize"
	stagePersist   = "persist"
	stageUpload    = "upload"
)

type searcher interface {
	Search(ctx context.Context, q types.Query) ([]types.PaperRecord, error)
	EnrichMetrics(ctx context.Context, records []types.PaperRecord) []types.PaperRecord
}

type pdfFetcher interface {
	Fetch(ctx context.Context, rec types.PaperRecord) types.FetchResult
	Delay(ctx context.Context)
}

type textSummarizer interface {
	Summarize(ctx context.Context, rec types.PaperRecord, paperText string) (string, error)
}

type artifactUploader interface {
	UploadArtifact(ctx context.Context, rec types.PaperRecord, path string) (string, error)
}

type runRecorder interface {
	BeginRun(ctx context.Context, runID string, q types.Query) error
	FinishRun(ctx context.Context, runID string, matched, downloaded, summarized, failed int) error
	RecordPaper(ctx context.Context, entry ledger.PaperEntry) error
}

// PaperFailure is one paper's failure reason within a run.
type PaperFailure struct {
	PaperID string
	Stage   string
	Reason  string
}

// Report summarizes one run's outcomes.
type Report struct {
	RunID      string
	Searched   int
	Matched    int
	Downloaded int
	Skipped    int
	Summarized int
	Failed     int
	Failures   []PaperFailure
}

// Total returns the number of candidate papers processed.
func (r Report) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any papers failed.
func (r Report) HasFailures() bool {
	return r.Failed > 0
}

// WriteText prints the terminal run summary to w.
func (r Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "\nBatch summary: %d matched, %d downloaded, %d skipped, %d summarized, %d failed (total: %d)\n",
		r.Matched, r.Downloaded, r.Skipped, r.Summarized, r.Failed, r.Total())
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s: %s failed: %s\n", f.PaperID, f.Stage, f.Reason)
	}
}

func (r *Report) fail(id, stage, reason string) {
	r.Failed++
	r.Failures = append(r.Failures, PaperFailure{PaperID: id, Stage: stage, Reason: reason})
}

// Pipeline wires the digest components together for one or more runs.
type Pipeline struct {
	cfg        types.PipelineConfig
	client     searcher
	downloader pdfFetcher
	extractor  extract.TextExtractor
	summarizer textSummarizer
	uploader   artifactUploader
	store      runRecorder
	log        zerolog.Logger
	closeFn    func() error
}

// New builds a pipeline from cfg. The summarizer and extractor are only
// constructed when the run will summarize; download-only runs work without
// pdftotext installed or an API key configured.
func New(cfg types.PipelineConfig, log zerolog.Logger) (*Pipeline, error) {
	metrics := fetch.NewMetrics()

	client, err := fetch.NewClient(cfg.Search, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("building search client: %w", err)
	}
	downloader, err := fetch.NewDownloader(cfg.Download, cfg.Search.InsecureSkipTLSVerify, log, metrics)
	if err != nil {
		return nil, fmt.Errorf("building downloader: %w", err)
	}

	p := &Pipeline{
		cfg:        cfg,
		client:     client,
		downloader: downloader,
		log:        log,
	}

	if !cfg.DownloadOnly {
		p.extractor, err = extract.NewPdftotextExtractor()
		if err != nil {
			return nil, fmt.Errorf("building text extractor: %w", err)
		}
		summarizer, err := summarize.NewSummarizer(cfg.Summary, log)
		if err != nil {
			return nil, fmt.Errorf("building summarizer: %w", err)
		}
		p.summarizer = summarizer
	}

	if cfg.Upload.Enabled {
		uploader, err := upload.NewUploader(cfg.Upload, log)
		if err != nil {
			return nil, fmt.Errorf("building uploader: %w", err)
		}
		p.uploader = uploader
	}

	if cfg.Ledger.Path == "" && cfg.Download.OutputDir != "" {
		cfg.Ledger.Path = filepath.Join(cfg.Download.OutputDir, "digest.db")
	}
	store, err := ledger.NewStore(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	p.store = store
	p.closeFn = store.Close

	return p, nil
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.closeFn != nil {
		return p.closeFn()
	}
	return nil
}

// Run executes one full digest run, streaming per-paper progress to w.
// Validation failures abort before any network call. Cancellation is
// honored between papers; the in-flight paper finishes or cleans up.
func (p *Pipeline) Run(ctx context.Context, q types.Query, spec types.RankingSpec, w io.Writer) (Report, error) {
	var report Report

	if err := q.Validate(); err != nil {
		return report, fmt.Errorf("invalid query: %w", err)
	}
	if spec.Metric == "" {
		spec.Metric = types.RankByDate
	}
	if err := spec.Validate(); err != nil {
		return report, fmt.Errorf("invalid ranking: %w", err)
	}

	report.RunID = uuid.NewString()
	log := p.log.With().Str("run_id", report.RunID).Logger()
	if err := p.store.BeginRun(ctx, report.RunID, q); err != nil {
		log.Warn().Err(err).Msg("ledger begin failed")
	}

	records, err := p.client.Search(ctx, q)
	if err != nil {
		p.finish(ctx, report, log)
		return report, fmt.Errorf("searching preprints: %w", err)
	}
	report.Searched = len(records)

	var matched []types.PaperRecord
	for _, rec := range records {
		if match.Matches(rec, q) {
			matched = append(matched, rec)
		}
	}
	report.Matched = len(matched)
	log.Info().Int("searched", report.Searched).Int("matched", report.Matched).Msg("search complete")

	if spec.NeedsMetrics() {
		matched = p.client.EnrichMetrics(ctx, matched)
	}
	candidates := rank.Rank(matched, spec)
	if q.MaxResults > 0 && len(candidates) > q.MaxResults {
		candidates = candidates[:q.MaxResults]
	}

	var runErr error
	quotaExhausted := false
	for i, rec := range candidates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if i > 0 {
			p.downloader.Delay(ctx)
		}
		p.processPaper(ctx, rec, &report, &quotaExhausted, w, log)
	}

	p.finish(ctx, report, log)
	report.WriteText(w)
	return report, runErr
}

func (p *Pipeline) processPaper(ctx context.Context, rec types.PaperRecord, report *Report, quotaExhausted *bool, w io.Writer, log zerolog.Logger) {
	plog := log.With().Str("paper_id", rec.ID).Logger()
	entry := ledger.PaperEntry{
		RunID:   report.RunID,
		PaperID: rec.ID,
		DOI:     rec.DOI,
		Title:   rec.Title,
	}
	defer func() {
		if err := p.store.RecordPaper(ctx, entry); err != nil {
			plog.Warn().Err(err).Msg("ledger record failed")
		}
	}()

	result := p.downloader.Fetch(ctx, rec)
	entry.PDFPath = result.Path
	switch result.Status {
	case types.FetchFailed:
		fmt.Fprintf(w, "failed:  %s (%v)\n", rec.ID, result.Err)
		report.fail(rec.ID, stageDownload, result.Err.Error())
		entry.Status, entry.Reason = "failed", result.Err.Error()
		return
	case types.FetchSkipped:
		fmt.Fprintf(w, "skipped: %s (already exists)\n", rec.ID)
		report.Skipped++
		entry.Status = "skipped"
		return
	case types.FetchAlreadyExists:
		fmt.Fprintf(w, "existing: %s\n", rec.ID)
		report.Skipped++
		entry.Status = "downloaded"
	default:
		fmt.Fprintf(w, "downloaded: %s\n", rec.ID)
		report.Downloaded++
		entry.Status = "downloaded"
		if _, err := fetch.WriteMetadata(rec, result.Path); err != nil {
			plog.Warn().Err(err).Msg("metadata sidecar write failed")
		}
	}

	if p.cfg.DownloadOnly {
		return
	}
	if *quotaExhausted {
		entry.Reason = "summary skipped: provider quota exhausted"
		return
	}

	text, err := extract.Text(ctx, p.extractor, result.Path, p.cfg.Summary.MaxPDFPages, plog)
	if err != nil {
		fmt.Fprintf(w, "  warning: text extraction failed for %s: %v\n", rec.ID, err)
		report.fail(rec.ID, stageExtract, err.Error())
		entry.Status, entry.Reason = "failed", err.Error()
		return
	}

	summary, err := p.summarizer.Summarize(ctx, rec, text)
	if err != nil {
		if summarize.IsQuota(err) {
			*quotaExhausted = true
			fmt.Fprintf(w, "  warning: provider quota exhausted, remaining papers download only\n")
			entry.Reason = "summary skipped: provider quota exhausted"
			return
		}
		fmt.Fprintf(w, "  warning: summarization failed for %s: %v\n", rec.ID, err)
		report.fail(rec.ID, stageSummarize, err.Error())
		entry.Status, entry.Reason = "failed", err.Error()
		return
	}

	summaryPath := strings.TrimSuffix(result.Path, ".pdf") + ".md"
	if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
		report.fail(rec.ID, stagePersist, err.Error())
		entry.Status, entry.Reason = "failed", err.Error()
		return
	}
	entry.SummaryPath = summaryPath
	entry.Status = "summarized"
	report.Summarized++
	fmt.Fprintf(w, "summarized: %s\n", rec.ID)

	if p.uploader != nil {
		for _, path := range []string{result.Path, summaryPath} {
			if _, err := p.uploader.UploadArtifact(ctx, rec, path); err != nil {
				fmt.Fprintf(w, "  warning: upload failed for %s: %v\n", path, err)
				report.fail(rec.ID, stageUpload, err.Error())
				entry.Reason = err.Error()
				return
			}
		}
	}
}

// finish records run totals even when the run's context was cancelled.
func (p *Pipeline) finish(ctx context.Context, report Report, log zerolog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := p.store.FinishRun(ctx, report.RunID, report.Matched, report.Downloaded, report.Summarized, report.Failed); err != nil {
		log.Warn().Err(err).Msg("ledger finish failed")
	}
}
