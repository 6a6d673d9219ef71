// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// listingMaxPages bounds how deep the fallback walks the public listing.
// Each listing page carries 75 results, well past any realistic window.
const listingMaxPages = 10

// versionSuffix extracts the trailing vN from a content URL path.
var versionSuffix = regexp.MustCompile(`v(\d+)$`)

// scrapeWindow discovers papers by crawling the public search listing.
// Records built here usually lack an abstract; matching still works through
// title, authors, and subject tags. Rows missing a title or DOI are skipped
// rather than failing the crawl.
func (c *Client) scrapeWindow(ctx context.Context, from, to time.Time) ([]types.PaperRecord, error) {
	base, err := url.Parse(c.listingBase)
	if err != nil {
		return nil, fmt.Errorf("parse listing base: %w", err)
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.UserAgent(c.cfg.UserAgent),
	)
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(c.http.Transport)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      time.Duration(float64(time.Second) / c.cfg.RequestsPerSecond),
	}); err != nil {
		return nil, fmt.Errorf("configure listing rate limit: %w", err)
	}

	var (
		mu       sync.Mutex
		records  []types.PaperRecord
		pages    int
		crawlErr error
	)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		c.metrics.IncRequest("listing")
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		classified := classifyError(err, statusCode)
		c.metrics.IncError(errorTypeLabel(classified))
		mu.Lock()
		if crawlErr == nil {
			crawlErr = classified
		}
		mu.Unlock()
	})

	collector.OnHTML("li.search-result", func(e *colly.HTMLElement) {
		rec, ok := extractListingRecord(e)
		if !ok {
			c.log.Debug().Str("url", e.Request.URL.String()).Msg("skipping unparsable listing row")
			return
		}
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
	})

	collector.OnHTML("li.pager-next a", func(e *colly.HTMLElement) {
		mu.Lock()
		pages++
		done := pages >= listingMaxPages
		mu.Unlock()
		if done || ctx.Err() != nil {
			return
		}
		collector.Visit(e.Request.AbsoluteURL(e.Attr("href")))
	})

	if err := collector.Visit(c.listingURL(from, to)); err != nil {
		return nil, fmt.Errorf("listing visit: %w", err)
	}
	collector.Wait()

	if len(records) == 0 && crawlErr != nil {
		return nil, fmt.Errorf("listing crawl: %w", crawlErr)
	}
	c.log.Info().Int("records", len(records)).Msg("window scraped from public listing")
	return records, nil
}

// listingURL builds the public search URL for a date window, newest first.
func (c *Client) listingURL(from, to time.Time) string {
	query := fmt.Sprintf("limit_from:%s limit_to:%s numresults:75 sort:publication-date direction:descending",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	return c.listingBase + "/search/" + url.PathEscape(query)
}

// extractListingRecord parses one search-result row. It reports false when
// the row lacks the fields needed to build a usable record.
func extractListingRecord(e *colly.HTMLElement) (types.PaperRecord, bool) {
	title := strings.TrimSpace(e.ChildText(".highwire-cite-title a"))
	if title == "" {
		title = strings.TrimSpace(e.ChildText(".highwire-cite-title"))
	}
	if title == "" {
		return types.PaperRecord{}, false
	}

	doi := parseListingDOI(e.ChildText(".highwire-cite-metadata-doi"))
	href := e.ChildAttr(".highwire-cite-title a", "href")
	version := ""
	if m := versionSuffix.FindStringSubmatch(strings.TrimSuffix(href, "/")); m != nil {
		version = m[1]
	}
	if doi == "" {
		return types.PaperRecord{}, false
	}

	var authors []string
	e.ForEach(".highwire-citation-authors .highwire-citation-author", func(_ int, a *colly.HTMLElement) {
		name := strings.TrimSpace(a.Text)
		if name != "" {
			authors = append(authors, name)
		}
	})

	id := doi
	if version != "" {
		id = doi + "v" + version
	}
	return types.PaperRecord{
		ID:       id,
		DOI:      doi,
		Version:  version,
		Title:    title,
		Authors:  authors,
		Category: strings.ToLower(strings.TrimSpace(e.ChildText(".highwire-cite-metadata-journal"))),
	}, true
}

// parseListingDOI pulls the bare DOI out of metadata text like
// "doi: https://doi.org/10.1101/2024.01.15.575678".
func parseListingDOI(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if i := strings.Index(text, "doi.org/"); i >= 0 {
		return strings.TrimSpace(text[i+len("doi.org/"):])
	}
	text = strings.TrimPrefix(text, "doi:")
	return strings.TrimSpace(text)
}
