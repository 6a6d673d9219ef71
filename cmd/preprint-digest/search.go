// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintel/preprint-digest/internal/fetch"
	"github.com/meshintel/preprint-digest/internal/match"
	"github.com/meshintel/preprint-digest/internal/rank"
	"github.com/meshintel/preprint-digest/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Preview which preprints a query would match",
	Long: `Search queries the bioRxiv API for the window, applies the topic and
author filters, ranks the matches, and prints them without downloading
anything.`,
	RunE: runSearch,
}

func init() {
	addQueryFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("bypass-api", false, "skip the machine API and scrape listings directly")
	searchCmd.Flags().Bool("disable-ssl-verify", false, "disable TLS certificate verification")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := buildQuery(cmd)
	if err := q.Validate(); err != nil {
		return err
	}
	spec := buildRanking(cmd)
	if err := spec.Validate(); err != nil {
		return err
	}

	var cfg types.SearchConfig
	cfg.Timeout = defaultTimeout
	cfg.UserAgent = defaultUserAgent
	cfg.BypassAPI, _ = cmd.Flags().GetBool("bypass-api")
	cfg.InsecureSkipTLSVerify, _ = cmd.Flags().GetBool("disable-ssl-verify")

	log := newLogger(types.PipelineConfig{Logging: types.LoggingConfig{Level: "warn", Format: "console"}})
	client, err := fetch.NewClient(cfg, log, fetch.NewMetrics())
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := client.Search(ctx, q)
	if err != nil {
		return err
	}

	var matched []types.PaperRecord
	for _, rec := range records {
		if match.Matches(rec, q) {
			matched = append(matched, rec)
		}
	}
	if spec.NeedsMetrics() {
		matched = client.EnrichMetrics(ctx, matched)
	}
	ranked := rank.Rank(matched, spec)
	if q.MaxResults > 0 && len(ranked) > q.MaxResults {
		ranked = ranked[:q.MaxResults]
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	for _, rec := range ranked {
		fmt.Printf("%s  %-12s  %s\n", rec.Date, rec.FirstAuthor(), rec.Title)
		fmt.Printf("            https://doi.org/%s\n", rec.DOI)
	}
	fmt.Printf("\n%d of %d searched papers matched\n", len(ranked), len(records))
	return nil
}
