package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "preprint-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the discovery stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// PageSize is the number of records requested per API page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// RequestsPerSecond throttles calls to the remote service (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// BypassAPI starts directly on the scraping fallback, for when the
	// machine API is known to be down.
	BypassAPI bool `json:"bypass_api" yaml:"bypass_api"`

	// InsecureSkipTLSVerify disables certificate verification. Opt-in,
	// for troubleshooting only.
	InsecureSkipTLSVerify bool `json:"insecure_skip_tls_verify" yaml:"insecure_skip_tls_verify"`

	// AltmetricAPIKey enables attention-score lookups when set.
	AltmetricAPIKey string `json:"altmetric_api_key,omitempty" yaml:"altmetric_api_key,omitempty"`
}

// DownloadConfig holds settings for PDF retrieval.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutputDir receives the PDF and summary artifacts. Created if absent
	// and checked for writability before any download begins.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Disposition resolves existing files at the target path.
	Disposition Disposition `json:"disposition" yaml:"disposition"`

	// DownloadDelay is the pause between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`
}

// SummaryConfig holds settings for the summarization collaborator.
type SummaryConfig struct {
	// Provider selects the AI provider: "openai" or "anthropic".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier for the selected provider.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature controls sampling (0.0-1.0, default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxResponseTokens caps the model's output. Zero selects the
	// provider default (3000 for OpenAI, 8000 for Anthropic).
	MaxResponseTokens int `json:"max_response_tokens" yaml:"max_response_tokens"`

	// MaxRetries is the retry count for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// PromptPath points to a custom prompt template file; empty selects
	// the built-in template.
	PromptPath string `json:"prompt_path,omitempty" yaml:"prompt_path,omitempty"`

	// MaxPDFPages bounds text extraction. Zero extracts all pages.
	MaxPDFPages int `json:"max_pdf_pages" yaml:"max_pdf_pages"`
}

// UploadConfig holds settings for the optional cloud-storage collaborator.
type UploadConfig struct {
	// Enabled turns on artifact upload after each successful paper.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Bucket is the destination bucket name.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is the key prefix under the bucket (default "papers").
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the bucket region (default "us-east-1").
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// Path is the SQLite database file (default "<output-dir>/digest.db").
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is the output format (json or console).
	Format string `json:"format" yaml:"format"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Summary  SummaryConfig  `json:"summary" yaml:"summary"`
	Upload   UploadConfig   `json:"upload" yaml:"upload"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`

	// DownloadOnly short-circuits the pipeline after the download step.
	DownloadOnly bool `json:"download_only" yaml:"download_only"`
}
