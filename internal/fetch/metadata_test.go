package fetch

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/meshintel/preprint-digest/pkg/types"
)

func TestMetadataSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := types.PaperRecord{
		ID:       "10.1101/2024.01.15.575678v1",
		DOI:      "10.1101/2024.01.15.575678",
		Version:  "1",
		Title:    "A paper about chromatin",
		Authors:  []string{"Smith, J.", "Doe, A."},
		Abstract: "We study chromatin.",
		Category: "genomics",
		Date:     "2024-01-15",
		Metrics:  types.UsageMetrics{Downloads: 42},
	}

	pdfPath := filepath.Join(dir, "2024-01-15 - Smith J - A paper about chromatin.pdf")
	path, err := WriteMetadata(rec, pdfPath)
	if err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if !strings.HasSuffix(path, "A paper about chromatin.yaml") {
		t.Errorf("sidecar path = %q", path)
	}

	got, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if got.ID != rec.ID || got.Title != rec.Title || got.Metrics.Downloads != 42 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Smith, J." {
		t.Errorf("authors = %v", got.Authors)
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	if _, err := ReadMetadata(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing sidecar")
	}
}
