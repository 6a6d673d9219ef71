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

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download matching preprint PDFs without summarizing",
	Long: `Fetch runs the search, filter, rank, and download stages and stops there.
It needs no API key and no pdftotext installation.`,
	RunE: runFetch,
}

func init() {
	addQueryFlags(fetchCmd)
	addFetchFlags(fetchCmd)

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	cfg.DownloadOnly = true

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
