// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"fmt"
	"os"
	"strings"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// systemPrompt frames every summarization call.
const systemPrompt = "You are a scientific research assistant tasked with summarizing bioRxiv preprints. " +
	"Provide clear, concise, and accurate summaries that highlight the key findings, methods, " +
	"strengths, limitations, and implications of the research."

// consolidationSystemPrompt frames the pass that merges partial summaries.
const consolidationSystemPrompt = "You are a scientific research assistant tasked with creating a coherent " +
	"summary from multiple partial summaries of a scientific paper."

// defaultPrompt is the built-in summary instruction. Custom prompt files
// may use the {TITLE}, {AUTHORS}, {ABSTRACT}, {DATE}, {DOI}, and {JOURNAL}
// placeholders; unknown placeholders pass through untouched.
const defaultPrompt = `# Scientific Paper Summary

Please provide a comprehensive summary of the following scientific paper. Include:

1. **Key Findings**: What are the main results and conclusions?
2. **Methodology**: What methods did the authors use?
3. **Strengths**: What are the strengths of this paper?
4. **Limitations**: What are the limitations or weaknesses?
5. **Implications**: How might this research impact the field?
6. **Future Directions**: What future research does this paper suggest?

Format the summary in Markdown with clear headings and bullet points where appropriate.`

// LoadPrompt returns the prompt template: the file at path when set, the
// built-in default otherwise.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return defaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(data), nil
}

// promptMetadata is the record metadata rendered into prompts. Missing
// fields render as explicit unknowns rather than empty strings.
type promptMetadata struct {
	Title    string
	Authors  string
	Abstract string
	Date     string
	DOI      string
	Journal  string
}

func metadataFor(rec types.PaperRecord) promptMetadata {
	m := promptMetadata{
		Title:    rec.Title,
		Authors:  strings.Join(rec.Authors, ", "),
		Abstract: rec.Abstract,
		Date:     rec.Date,
		DOI:      rec.DOI,
		Journal:  rec.Collection,
	}
	if m.Title == "" {
		m.Title = "Unknown Title"
	}
	if m.Authors == "" {
		m.Authors = "Unknown Authors"
	}
	if m.Abstract == "" {
		m.Abstract = "No abstract available"
	}
	if m.Date == "" {
		m.Date = "Unknown Date"
	}
	if m.DOI == "" {
		m.DOI = "No DOI available"
	}
	if m.Journal == "" {
		m.Journal = "bioRxiv"
	}
	return m
}

// renderPrompt substitutes metadata placeholders and appends the metadata
// block every call carries.
func renderPrompt(template string, m promptMetadata) string {
	r := strings.NewReplacer(
		"{TITLE}", m.Title,
		"{AUTHORS}", m.Authors,
		"{ABSTRACT}", m.Abstract,
		"{DATE}", m.Date,
		"{DOI}", m.DOI,
		"{JOURNAL}", m.Journal,
	)
	prompt := r.Replace(template)

	return fmt.Sprintf("%s\n\nPaper Metadata:\nTitle: %s\nAuthors: %s\nDate: %s\nDOI: %s\n\nAbstract:\n%s",
		prompt, m.Title, m.Authors, m.Date, m.DOI, m.Abstract)
}

// summaryHeader is the metadata block prepended to every final summary.
func summaryHeader(m promptMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	fmt.Fprintf(&b, "**Authors:** %s\n\n", m.Authors)
	fmt.Fprintf(&b, "**Publication Date:** %s\n\n", m.Date)
	fmt.Fprintf(&b, "**DOI:** %s\n\n", m.DOI)
	fmt.Fprintf(&b, "**Abstract:** %s\n\n", m.Abstract)
	b.WriteString("---\n\n")
	return b.String()
}
