// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FetchStatus is the terminal state of one download attempt.
type FetchStatus string

const (
	// FetchDownloaded means the PDF bytes were written to Path.
	FetchDownloaded FetchStatus = "downloaded"
	// FetchAlreadyExists means a prior download was found at Path and the
	// disposition policy resolved to keep it.
	FetchAlreadyExists FetchStatus = "already_exists"
	// FetchSkipped means an existing file was found and the disposition
	// policy chose to skip the paper entirely.
	FetchSkipped FetchStatus = "skipped"
	// FetchFailed is terminal failure; Err carries the reason.
	FetchFailed FetchStatus = "failed"
)

// Disposition resolves what to do when the target file already exists.
type Disposition string

const (
	// Redownload fetches the PDF again, replacing the existing file.
	Redownload Disposition = "redownload"
	// UseExisting keeps the file on disk and reports AlreadyExists.
	UseExisting Disposition = "use-existing"
	// Skip leaves the file alone and drops the paper from the run.
	Skip Disposition = "skip"
)

// FetchResult is the outcome of attempting to retrieve one paper's PDF.
// Created per paper per run; only the file it names outlives the run.
type FetchResult struct {
	// Status is the terminal state of the attempt.
	Status FetchStatus `json:"status" yaml:"status"`

	// Path is the local PDF path for Downloaded/AlreadyExists results.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Err is the failure reason for Failed results.
	Err error `json:"-" yaml:"-"`
}
