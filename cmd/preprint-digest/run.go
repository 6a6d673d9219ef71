// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meshintel/preprint-digest/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, download, and summarize matching preprints",
	Long: `Run executes the full digest: search bioRxiv for the window, filter by
topic and author, rank, download each PDF, extract its text, and write an
LLM summary next to the PDF. Interrupting the run stops after the paper in
flight; completed artifacts are kept.`,
	RunE: runDigest,
}

func init() {
	addQueryFlags(runCmd)
	addFetchFlags(runCmd)
	addSummaryFlags(runCmd)
	runCmd.Flags().Bool("download-only", false, "skip extraction and summarization")

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.DownloadOnly, _ = cmd.Flags().GetBool("download-only")

	p, err := pipeline.New(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, buildQuery(cmd), buildRanking(cmd), os.Stdout)
	if err != nil {
		return err
	}
	if report.HasFailures() {
		return fmt.Errorf("%d paper(s) failed", report.Failed)
	}
	return nil
}
