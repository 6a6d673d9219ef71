// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file is one secret: the filename is the key name and the trimmed contents
// are the value.
//
// Supported key files: openai-api-key, anthropic-api-key, altmetric-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// Key file names recognized by Apply.
const (
	OpenAIKeyFile    = "openai-api-key"
	AnthropicKeyFile = "anthropic-api-key"
	AltmetricKeyFile = "altmetric-api-key"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills the API-key fields of cfg from loaded secrets. Keys already
// set on cfg (from flags or environment) win over the secrets directory.
func Apply(cfg *types.PipelineConfig, secrets map[string]string) {
	if cfg.Summary.APIKey == "" {
		switch cfg.Summary.Provider {
		case "anthropic":
			cfg.Summary.APIKey = secrets[AnthropicKeyFile]
		default:
			cfg.Summary.APIKey = secrets[OpenAIKeyFile]
		}
	}
	if cfg.Search.AltmetricAPIKey == "" {
		cfg.Search.AltmetricAPIKey = secrets[AltmetricKeyFile]
	}
}
