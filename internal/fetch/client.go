// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch discovers preprints through the bioRxiv machine API, falls
// back to scraping the public listing when the API is unavailable, and
// retrieves PDFs and usage metrics for discovered papers.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/meshintel/preprint-digest/pkg/types"
)

const (
	defaultAPIBase       = "https://api.biorxiv.org"
	defaultAltmetricBase = "https://api.altmetric.com/v1"
	defaultContentBase   = "https://www.biorxiv.org/content"
	defaultListingBase   = "https://www.biorxiv.org"

	defaultPageSize          = 100
	defaultRequestsPerSecond = 2.0
	defaultTimeout           = 30 * time.Second
	defaultUserAgent         = "preprint-digest/0.1"

	// maxAttempts bounds transient-failure retries per API page before the
	// client gives up on the API for the rest of the run.
	maxAttempts = 2

	usageCacheSize = 512
)

// backoffBase controls the base duration for exponential backoff between
// API attempts. Tests override this to avoid real sleeps.
var backoffBase = 1 * time.Second

// sourceMode tracks which discovery source the client is on. The transition
// from the API to scraping is one-way within a run.
type sourceMode int

const (
	modePrimary sourceMode = iota
	modeFallback
)

// Client discovers papers and enriches them with usage metrics. One client
// serves a whole run; the HTTP transport and rate limiter are shared across
// all its requests.
type Client struct {
	cfg     types.SearchConfig
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	metrics *Metrics

	usageCache *lru.Cache[string, types.UsageMetrics]

	apiBase       string
	altmetricBase string
	listingBase   string

	mode sourceMode
}

// NewClient builds a discovery client from cfg. When cfg.BypassAPI is set
// the client starts directly on the scraping fallback.
func NewClient(cfg types.SearchConfig, log zerolog.Logger, metrics *Metrics) (*Client, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		log.Warn().Msg("TLS certificate verification disabled")
	}

	cache, err := lru.New[string, types.UsageMetrics](usageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating usage cache: %w", err)
	}

	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:           log,
		metrics:       metrics,
		usageCache:    cache,
		apiBase:       defaultAPIBase,
		altmetricBase: defaultAltmetricBase,
		listingBase:   defaultListingBase,
	}
	if cfg.BypassAPI {
		c.mode = modeFallback
		log.Info().Msg("machine API bypassed, starting on listing scraper")
	}
	return c, nil
}

// OnFallback reports whether the client has left the machine API for the
// scraping fallback.
func (c *Client) OnFallback() bool {
	return c.mode == modeFallback
}

// Search returns all papers published in the query's window. The machine
// API is tried first; after maxAttempts transient failures on any page the
// client switches to scraping the public listing and stays there for the
// remainder of the run.
func (c *Client) Search(ctx context.Context, q types.Query) ([]types.PaperRecord, error) {
	daysBack := q.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	to := time.Now()
	from := to.AddDate(0, 0, -daysBack)

	if c.mode == modeFallback {
		return c.scrapeWindow(ctx, from, to)
	}

	records, err := c.searchAPI(ctx, from, to)
	if err != nil {
		c.log.Warn().Err(err).Msg("machine API unavailable, switching to listing scraper")
		c.metrics.IncFallback()
		c.mode = modeFallback
		return c.scrapeWindow(ctx, from, to)
	}
	return records, nil
}

// detailsResponse is the wire shape of the details endpoint.
type detailsResponse struct {
	Collection []detailsRecord `json:"collection"`
	Messages   []apiMessage    `json:"messages"`
}

type apiMessage struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Total  int    `json:"total"`
}

type detailsRecord struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Version  string `json:"version"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Abstract string `json:"abstract"`
}

// searchAPI pages through GET {api}/details/biorxiv/{from}/{to}/{cursor}
// until the window is exhausted.
func (c *Client) searchAPI(ctx context.Context, from, to time.Time) ([]types.PaperRecord, error) {
	var records []types.PaperRecord
	cursor := 0
	for {
		page, err := c.fetchPage(ctx, from, to, cursor)
		if err != nil {
			return nil, err
		}
		for _, d := range page.Collection {
			records = append(records, toRecord(d))
		}

		if len(page.Collection) == 0 {
			break
		}
		cursor += len(page.Collection)
		if len(page.Messages) > 0 && cursor >= page.Messages[0].Total {
			break
		}
		if len(page.Collection) < c.cfg.PageSize {
			break
		}
	}
	c.log.Info().Int("records", len(records)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("window fetched from machine API")
	return records, nil
}

// fetchPage retrieves one cursor page, retrying transient failures with
// exponential backoff.
func (c *Client) fetchPage(ctx context.Context, from, to time.Time, cursor int) (*detailsResponse, error) {
	url := fmt.Sprintf("%s/details/biorxiv/%s/%s/%d",
		c.apiBase, from.Format("2006-01-02"), to.Format("2006-01-02"), cursor)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.IncRetries()
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var page detailsResponse
		err := c.getInto(ctx, url, "search", &page)
		if err == nil {
			return &page, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt+1).Str("url", url).Msg("details page failed")
	}
	return nil, lastErr
}

// toRecord converts a wire record. Author lists arrive as one
// semicolon-separated string and are split into whole names.
func toRecord(d detailsRecord) types.PaperRecord {
	id := d.DOI
	if d.Version != "" {
		id = d.DOI + "v" + d.Version
	}

	var authors []string
	for _, name := range strings.Split(d.Authors, ";") {
		name = strings.TrimSpace(name)
		if name != "" {
			authors = append(authors, name)
		}
	}

	return types.PaperRecord{
		ID:        id,
		DOI:       d.DOI,
		Version:   d.Version,
		Title:     strings.TrimSpace(d.Title),
		Authors:   authors,
		Abstract:  strings.TrimSpace(d.Abstract),
		Category:  strings.ToLower(strings.TrimSpace(d.Category)),
		PaperType: strings.ToLower(strings.TrimSpace(d.Type)),
		Date:      d.Date,
	}
}
