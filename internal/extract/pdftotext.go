// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	binPdftotext = "pdftotext"
	binPdfinfo   = "pdfinfo"
)

// PdftotextExtractor extracts text by shelling out to the poppler tools
// pdftotext and pdfinfo. Pages are extracted one at a time with -f/-l so
// memory stays bounded for large documents.
type PdftotextExtractor struct{}

// NewPdftotextExtractor verifies the poppler tools are on PATH.
func NewPdftotextExtractor() (*PdftotextExtractor, error) {
	for _, bin := range []string{binPdftotext, binPdfinfo} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, fmt.Errorf("%s not found on PATH: %w", bin, err)
		}
	}
	return &PdftotextExtractor{}, nil
}

// PageCount parses the Pages line out of pdfinfo output.
func (e *PdftotextExtractor) PageCount(ctx context.Context, pdfPath string) (int, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, binPdfinfo, pdfPath)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("running pdfinfo on %s: %w", pdfPath, err)
	}

	for _, line := range strings.Split(out.String(), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("parsing page count %q: %w", line, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no Pages line in pdfinfo output for %s", pdfPath)
}

// ExtractPage runs pdftotext on a single page, writing to stdout.
func (e *PdftotextExtractor) ExtractPage(ctx context.Context, pdfPath string, page int) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, binPdftotext,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-layout",
		pdfPath, "-")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running pdftotext on %s page %d: %w", pdfPath, page, err)
	}
	return out.String(), nil
}
