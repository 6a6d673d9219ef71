// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// usageResponse is the wire shape of the per-DOI usage endpoint.
type usageResponse struct {
	Usage struct {
		Abstract int `json:"abstract"`
		Full     int `json:"full"`
		PDF      int `json:"pdf"`
	} `json:"usage"`
}

// altmetricResponse is the wire shape of the Altmetric attention endpoint.
type altmetricResponse struct {
	Score           float64 `json:"score"`
	CitedByTweeters int     `json:"cited_by_tweeters_count"`
}

// EnrichMetrics populates usage and attention counters on each record,
// reusing cached values for DOIs already looked up this run. A failed or
// missing lookup leaves that record's counters at zero; metric enrichment
// never fails a search.
func (c *Client) EnrichMetrics(ctx context.Context, records []types.PaperRecord) []types.PaperRecord {
	out := make([]types.PaperRecord, len(records))
	copy(out, records)

	for i := range out {
		if out[i].DOI == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		if cached, ok := c.usageCache.Get(out[i].DOI); ok {
			out[i].Metrics = cached
			continue
		}

		metrics := c.lookupMetrics(ctx, out[i].DOI)
		c.usageCache.Add(out[i].DOI, metrics)
		out[i].Metrics = metrics
	}
	return out
}

func (c *Client) lookupMetrics(ctx context.Context, doi string) types.UsageMetrics {
	var m types.UsageMetrics

	var usage usageResponse
	url := fmt.Sprintf("%s/usage/doi/%s", c.apiBase, doi)
	if err := c.getInto(ctx, url, "usage", &usage); err != nil {
		c.log.Debug().Err(err).Str("doi", doi).Msg("usage lookup failed")
	} else {
		m.AbstractViews = usage.Usage.Abstract
		m.FullTextViews = usage.Usage.Full
		m.Downloads = usage.Usage.PDF
	}

	if c.cfg.AltmetricAPIKey != "" {
		var alt altmetricResponse
		url := fmt.Sprintf("%s/doi/%s?key=%s", c.altmetricBase, doi, c.cfg.AltmetricAPIKey)
		if err := c.getInto(ctx, url, "altmetric", &alt); err != nil {
			c.log.Debug().Err(err).Str("doi", doi).Msg("altmetric lookup failed")
		} else {
			m.AttentionScore = alt.Score
			m.TwitterCount = alt.CitedByTweeters
		}
	}
	return m
}

// getInto performs one rate-limited GET and decodes the JSON body into v.
func (c *Client) getInto(ctx context.Context, url, phase string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	c.metrics.IncRequest(phase)
	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		classified := classifyError(err, 0)
		c.metrics.IncError(errorTypeLabel(classified))
		return classified
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		classified := classifyError(fmt.Errorf("http status %d", resp.StatusCode), resp.StatusCode)
		c.metrics.IncError(errorTypeLabel(classified))
		return classified
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		classified := ErrParse{Err: err}
		c.metrics.IncError(errorTypeLabel(classified))
		return classified
	}
	return nil
}
