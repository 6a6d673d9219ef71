package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meshintel/preprint-digest/internal/fetch"
	"github.com/meshintel/preprint-digest/internal/ledger"
	"github.com/meshintel/preprint-digest/internal/summarize"
	"github.com/meshintel/preprint-digest/pkg/types"
)

type fakeSearcher struct {
	records  []types.PaperRecord
	err      error
	searches int
	enriched bool
}

func (f *fakeSearcher) Search(ctx context.Context, q types.Query) ([]types.PaperRecord, error) {
	f.searches++
	return f.records, f.err
}

func (f *fakeSearcher) EnrichMetrics(ctx context.Context, records []types.PaperRecord) []types.PaperRecord {
	f.enriched = true
	return records
}

// fakeFetcher writes a stub PDF per paper unless the paper is listed in
// fail or skip.
type fakeFetcher struct {
	dir     string
	fail    map[string]error
	skip    map[string]bool
	fetched []string
	onFetch func(id string)
}

func (f *fakeFetcher) Fetch(ctx context.Context, rec types.PaperRecord) types.FetchResult {
	f.fetched = append(f.fetched, rec.ID)
	if f.onFetch != nil {
		f.onFetch(rec.ID)
	}
	if err, ok := f.fail[rec.ID]; ok {
		return types.FetchResult{Status: types.FetchFailed, Err: err}
	}
	if f.skip[rec.ID] {
		return types.FetchResult{Status: types.FetchSkipped}
	}
	path := filepath.Join(f.dir, fetch.Filename(rec))
	if err := os.WriteFile(path, []byte("%PDF stub"), 0o644); err != nil {
		return types.FetchResult{Status: types.FetchFailed, Err: err}
	}
	return types.FetchResult{Status: types.FetchDownloaded, Path: path}
}

func (f *fakeFetcher) Delay(ctx context.Context) {}

type fakeExtractor struct{ err error }

func (f *fakeExtractor) PageCount(ctx context.Context, pdfPath string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeExtractor) ExtractPage(ctx context.Context, pdfPath string, page int) (string, error) {
	return "extracted text", f.err
}

type fakeSummarizer struct {
	calls []string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, rec types.PaperRecord, paperText string) (string, error) {
	f.calls = append(f.calls, rec.ID)
	if f.err != nil {
		return "", f.err
	}
	return "# " + rec.Title + "\n\nsummary of " + rec.ID, nil
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) UploadArtifact(ctx context.Context, rec types.PaperRecord, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, filepath.Base(path))
	return "papers/" + filepath.Base(path), nil
}

type fakeRecorder struct {
	begun    []string
	finished []string
	papers   []ledger.PaperEntry
}

func (f *fakeRecorder) BeginRun(ctx context.Context, runID string, q types.Query) error {
	f.begun = append(f.begun, runID)
	return nil
}

func (f *fakeRecorder) FinishRun(ctx context.Context, runID string, matched, downloaded, summarized, failed int) error {
	f.finished = append(f.finished, runID)
	return nil
}

func (f *fakeRecorder) RecordPaper(ctx context.Context, entry ledger.PaperEntry) error {
	f.papers = append(f.papers, entry)
	return nil
}

func crisprRecords() []types.PaperRecord {
	return []types.PaperRecord{
		{
			ID: "10.1101/av1", DOI: "10.1101/a", Title: "CRISPR screening in neurons",
			Authors: []string{"Smith, J."}, Abstract: "A CRISPR study.",
			Category: "neuroscience", Date: "2024-01-15",
		},
		{
			ID: "10.1101/bv1", DOI: "10.1101/b", Title: "CRISPR base editing atlas",
			Authors: []string{"Doe, A."}, Abstract: "Base editing results.",
			Category: "genomics", Date: "2024-01-20",
		},
		{
			ID: "10.1101/cv1", DOI: "10.1101/c", Title: "Yeast metabolism survey",
			Authors: []string{"Roe, B."}, Abstract: "Nothing about gene editing.",
			Category: "microbiology", Date: "2024-01-18",
		},
	}
}

func testPipeline(t *testing.T, searcher *fakeSearcher) (*Pipeline, *fakeFetcher, *fakeSummarizer, *fakeRecorder) {
	t.Helper()
	fetcher := &fakeFetcher{dir: t.TempDir(), fail: map[string]error{}, skip: map[string]bool{}}
	summarizer := &fakeSummarizer{}
	recorder := &fakeRecorder{}
	p := &Pipeline{
		cfg:        types.PipelineConfig{},
		client:     searcher,
		downloader: fetcher,
		extractor:  &fakeExtractor{},
		summarizer: summarizer,
		store:      recorder,
		log:        zerolog.Nop(),
	}
	return p, fetcher, summarizer, recorder
}

func TestRunEndToEnd(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, fetcher, summarizer, recorder := testPipeline(t, searcher)

	var out bytes.Buffer
	q := types.Query{Topics: []string{"CRISPR"}, DaysBack: 30}
	report, err := p.Run(context.Background(), q, types.RankingSpec{}, &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Searched != 3 || report.Matched != 2 {
		t.Errorf("searched=%d matched=%d, want 3 and 2", report.Searched, report.Matched)
	}
	if report.Downloaded != 2 || report.Summarized != 2 || report.Failed != 0 {
		t.Errorf("downloaded=%d summarized=%d failed=%d", report.Downloaded, report.Summarized, report.Failed)
	}

	// Default ranking is newest first, so the base-editing paper leads.
	if len(fetcher.fetched) != 2 || fetcher.fetched[0] != "10.1101/bv1" {
		t.Errorf("fetch order = %v", fetcher.fetched)
	}

	if len(summarizer.calls) != 2 {
		t.Errorf("summarizer calls = %v", summarizer.calls)
	}

	// Each summarized paper leaves a sibling .md next to its PDF.
	entries, err := os.ReadDir(fetcher.dir)
	if err != nil {
		t.Fatal(err)
	}
	var mds int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			mds++
		}
	}
	if mds != 2 {
		t.Errorf("summary files = %d, want 2", mds)
	}

	if len(recorder.begun) != 1 || len(recorder.finished) != 1 {
		t.Errorf("run lifecycle not recorded: begun=%v finished=%v", recorder.begun, recorder.finished)
	}
	if len(recorder.papers) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(recorder.papers))
	}
	for _, e := range recorder.papers {
		if e.Status != "summarized" || e.SummaryPath == "" {
			t.Errorf("ledger entry %s: status=%q summary=%q", e.PaperID, e.Status, e.SummaryPath)
		}
	}

	if !strings.Contains(out.String(), "Batch summary: 2 matched, 2 downloaded") {
		t.Errorf("batch summary missing from output:\n%s", out.String())
	}
}

func TestRunInvalidQueryAbortsBeforeSearch(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, _, _, recorder := testPipeline(t, searcher)

	_, err := p.Run(context.Background(), types.Query{}, types.RankingSpec{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("empty query should be rejected")
	}
	if searcher.searches != 0 {
		t.Error("no network call should happen for an invalid query")
	}
	if len(recorder.begun) != 0 {
		t.Error("invalid runs should not be recorded")
	}
}

func TestRunSearchErrorPropagates(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("both transports down")}
	p, _, _, _ := testPipeline(t, searcher)

	_, err := p.Run(context.Background(), types.Query{Topics: []string{"x"}}, types.RankingSpec{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "both transports down") {
		t.Errorf("search error not propagated: %v", err)
	}
}

func TestRunDownloadOnlySkipsSummarization(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, _, summarizer, recorder := testPipeline(t, searcher)
	p.cfg.DownloadOnly = true
	p.summarizer = nil
	p.extractor = nil

	report, err := p.Run(context.Background(), types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Downloaded != 2 || report.Summarized != 0 {
		t.Errorf("downloaded=%d summarized=%d", report.Downloaded, report.Summarized)
	}
	if len(summarizer.calls) != 0 {
		t.Error("summarizer must not run in download-only mode")
	}
	for _, e := range recorder.papers {
		if e.Status != "downloaded" {
			t.Errorf("entry %s status = %q", e.PaperID, e.Status)
		}
	}
}

func TestRunQuotaLatchKeepsDownloading(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, fetcher, summarizer, recorder := testPipeline(t, searcher)
	summarizer.err = &summarize.APIError{
		Provider: "openai", StatusCode: 429, Code: "insufficient_quota", Message: "quota",
	}

	report, err := p.Run(context.Background(), types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Both PDFs land on disk, only the first paper hits the provider.
	if len(fetcher.fetched) != 2 {
		t.Errorf("fetched = %v", fetcher.fetched)
	}
	if len(summarizer.calls) != 1 {
		t.Errorf("summarizer calls = %d, want 1", len(summarizer.calls))
	}
	if report.Downloaded != 2 || report.Summarized != 0 || report.Failed != 0 {
		t.Errorf("downloaded=%d summarized=%d failed=%d", report.Downloaded, report.Summarized, report.Failed)
	}
	for _, e := range recorder.papers {
		if e.Status != "downloaded" || !strings.Contains(e.Reason, "quota") {
			t.Errorf("entry %s: status=%q reason=%q", e.PaperID, e.Status, e.Reason)
		}
	}
}

func TestRunContinuesAfterPaperFailure(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, fetcher, _, _ := testPipeline(t, searcher)
	fetcher.fail["10.1101/bv1"] = errors.New("connection reset")

	var out bytes.Buffer
	report, err := p.Run(context.Background(), types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.HasFailures() || report.Failed != 1 || report.Summarized != 1 {
		t.Errorf("failed=%d summarized=%d", report.Failed, report.Summarized)
	}
	if len(report.Failures) != 1 || report.Failures[0].Stage != stageDownload {
		t.Errorf("failures = %+v", report.Failures)
	}
	if !strings.Contains(out.String(), "connection reset") {
		t.Error("failure reason missing from report output")
	}
}

func TestRunHonorsMaxResults(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, fetcher, _, _ := testPipeline(t, searcher)

	q := types.Query{Topics: []string{"CRISPR"}, MaxResults: 1}
	report, err := p.Run(context.Background(), q, types.RankingSpec{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fetcher.fetched) != 1 || report.Total() != 1 {
		t.Errorf("fetched=%v total=%d", fetcher.fetched, report.Total())
	}
}

func TestRunEnrichesOnlyWhenRankingNeedsMetrics(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, _, _, _ := testPipeline(t, searcher)

	q := types.Query{Topics: []string{"CRISPR"}}
	if _, err := p.Run(context.Background(), q, types.RankingSpec{}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if searcher.enriched {
		t.Error("date ranking should not fetch usage metrics")
	}

	spec := types.RankingSpec{Metric: types.RankByDownloads}
	if _, err := p.Run(context.Background(), q, spec, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if !searcher.enriched {
		t.Error("downloads ranking requires usage metrics")
	}
}

func TestRunCancellationStopsBetweenPapers(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, fetcher, _, recorder := testPipeline(t, searcher)

	ctx, cancel := context.WithCancel(context.Background())
	fetcher.onFetch = func(string) { cancel() }

	report, err := p.Run(ctx, types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(fetcher.fetched) != 1 {
		t.Errorf("fetched = %v, want one paper before cancellation", fetcher.fetched)
	}
	// The run's totals still land in the ledger.
	if len(recorder.finished) != 1 {
		t.Error("cancelled run should still be finalized in the ledger")
	}
	if report.Total() != 1 {
		t.Errorf("total = %d", report.Total())
	}
}

func TestRunUploadsBothArtifacts(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()[:1]}
	p, _, _, _ := testPipeline(t, searcher)
	uploader := &fakeUploader{}
	p.uploader = uploader

	if _, err := p.Run(context.Background(), types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if len(uploader.keys) != 2 {
		t.Fatalf("uploaded = %v, want pdf and summary", uploader.keys)
	}
	if !strings.HasSuffix(uploader.keys[0], ".pdf") || !strings.HasSuffix(uploader.keys[1], ".md") {
		t.Errorf("uploaded = %v", uploader.keys)
	}
}

func TestRunUploadFailureIsPerPaper(t *testing.T) {
	searcher := &fakeSearcher{records: crisprRecords()}
	p, _, _, _ := testPipeline(t, searcher)
	p.uploader = &fakeUploader{err: errors.New("access denied")}

	report, err := p.Run(context.Background(), types.Query{Topics: []string{"CRISPR"}}, types.RankingSpec{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 2 {
		t.Errorf("failed = %d, want every upload failure recorded", report.Failed)
	}
	for _, f := range report.Failures {
		if f.Stage != stageUpload {
			t.Errorf("stage = %q", f.Stage)
		}
	}
}
