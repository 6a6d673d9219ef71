// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/preprint-digest/internal/observability"
	"github.com/meshintel/preprint-digest/internal/secrets"
	"github.com/meshintel/preprint-digest/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "preprint-digest/0.1"
)

// addQueryFlags registers the matching and ranking flags shared by the
// search, fetch, and run subcommands.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("topic", nil, "topic to match (repeatable)")
	cmd.Flags().String("topic-match", "all", "how multiple topics combine (all, any)")
	cmd.Flags().StringSlice("author", nil, "author name to match (repeatable)")
	cmd.Flags().String("author-match", "any", "how multiple authors combine (all, any)")
	cmd.Flags().Bool("fuzzy", false, "tolerate formatting variation in topic matching")
	cmd.Flags().Int("days-back", 30, "search window in days")
	cmd.Flags().Int("max-results", 20, "maximum papers after ranking")
	cmd.Flags().String("rank-by", "date", "ranking metric (date, downloads, abstract_views, attention, combined)")
	cmd.Flags().String("rank-direction", "desc", "ranking direction (asc, desc)")
}

// addFetchFlags registers flags for commands that download PDFs.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("output-dir", "papers", "directory for downloaded PDFs and summaries")
	cmd.Flags().String("disposition", "use-existing", "existing-file policy (redownload, use-existing, skip)")
	cmd.Flags().Bool("skip-existing", false, "shorthand for --disposition skip")
	cmd.Flags().Duration("delay", defaultDelay, "delay between consecutive downloads")
	cmd.Flags().Bool("bypass-api", false, "skip the machine API and scrape listings directly")
	cmd.Flags().Bool("disable-ssl-verify", false, "disable TLS certificate verification")
}

// addSummaryFlags registers flags for commands that summarize.
func addSummaryFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "openai", "summarization provider (openai, anthropic)")
	cmd.Flags().String("model", "", "model name (provider default when empty)")
	cmd.Flags().String("api-key", "", "provider API key (defaults to .secrets/)")
	cmd.Flags().Float64("temperature", 0.3, "sampling temperature")
	cmd.Flags().String("prompt-file", "", "custom prompt template file")
	cmd.Flags().Int("max-pdf-pages", 0, "cap on extracted PDF pages (0 = all)")
}

func buildQuery(cmd *cobra.Command) types.Query {
	topics, _ := cmd.Flags().GetStringSlice("topic")
	topicMatch, _ := cmd.Flags().GetString("topic-match")
	authors, _ := cmd.Flags().GetStringSlice("author")
	authorMatch, _ := cmd.Flags().GetString("author-match")
	fuzzy, _ := cmd.Flags().GetBool("fuzzy")
	daysBack, _ := cmd.Flags().GetInt("days-back")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return types.Query{
		Topics:      topics,
		TopicMatch:  types.MatchMode(topicMatch),
		Authors:     authors,
		AuthorMatch: types.MatchMode(authorMatch),
		Fuzzy:       fuzzy,
		DaysBack:    daysBack,
		MaxResults:  maxResults,
	}
}

func buildRanking(cmd *cobra.Command) types.RankingSpec {
	metric, _ := cmd.Flags().GetString("rank-by")
	direction, _ := cmd.Flags().GetString("rank-direction")

	spec := types.RankingSpec{
		Metric:    types.RankMetric(metric),
		Direction: types.RankDirection(direction),
	}
	if weights := viper.GetStringMap("rank.weights"); len(weights) > 0 {
		spec.Weights = make(map[string]float64, len(weights))
		for k := range weights {
			spec.Weights[k] = viper.GetFloat64("rank.weights." + k)
		}
	}
	return spec
}

func buildConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig

	cfg.Search.Timeout = defaultTimeout
	cfg.Search.UserAgent = defaultUserAgent
	cfg.Search.BypassAPI, _ = cmd.Flags().GetBool("bypass-api")
	cfg.Search.InsecureSkipTLSVerify, _ = cmd.Flags().GetBool("disable-ssl-verify")
	cfg.Search.AltmetricAPIKey = viper.GetString("altmetric.api_key")

	cfg.Download.Timeout = defaultTimeout
	cfg.Download.UserAgent = defaultUserAgent
	cfg.Download.OutputDir, _ = cmd.Flags().GetString("output-dir")
	cfg.Download.DownloadDelay, _ = cmd.Flags().GetDuration("delay")

	disposition, _ := cmd.Flags().GetString("disposition")
	if skip, _ := cmd.Flags().GetBool("skip-existing"); skip {
		disposition = string(types.Skip)
	}
	switch d := types.Disposition(disposition); d {
	case types.Redownload, types.UseExisting, types.Skip:
		cfg.Download.Disposition = d
	default:
		return cfg, fmt.Errorf("invalid disposition %q", disposition)
	}

	if cmd.Flags().Lookup("provider") != nil {
		cfg.Summary.Provider, _ = cmd.Flags().GetString("provider")
		cfg.Summary.Model, _ = cmd.Flags().GetString("model")
		cfg.Summary.APIKey, _ = cmd.Flags().GetString("api-key")
		cfg.Summary.Temperature, _ = cmd.Flags().GetFloat64("temperature")
		cfg.Summary.PromptPath, _ = cmd.Flags().GetString("prompt-file")
		cfg.Summary.MaxPDFPages, _ = cmd.Flags().GetInt("max-pdf-pages")
		cfg.Summary.MaxRetries = viper.GetInt("summary.max_retries")
	}

	cfg.Upload.Enabled = viper.GetBool("upload.enabled")
	cfg.Upload.Bucket = viper.GetString("upload.bucket")
	cfg.Upload.Prefix = viper.GetString("upload.prefix")
	cfg.Upload.Region = viper.GetString("upload.region")

	cfg.Ledger.Path = viper.GetString("ledger.path")

	cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")

	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func newLogger(cfg types.PipelineConfig) zerolog.Logger {
	return observability.NewLogger(cfg.Logging, nil)
}
