// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// WriteMetadata writes the paper record as a YAML sidecar next to the PDF
// and returns the sidecar path. Later runs can recover the full record for
// an already-downloaded paper without re-querying the API.
func WriteMetadata(rec types.PaperRecord, pdfPath string) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata for %s: %w", rec.ID, err)
	}
	path := strings.TrimSuffix(pdfPath, ".pdf") + ".yaml"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing metadata %s: %w", path, err)
	}
	return path, nil
}

// ReadMetadata loads a paper record from a YAML sidecar.
func ReadMetadata(path string) (types.PaperRecord, error) {
	var rec types.PaperRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return rec, nil
}
