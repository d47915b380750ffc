package main

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PromptCleanCore is the headless core holding one editing session: the
// raw prompt, the processed output, and the trace of the last run. It has
// no GTK dependencies so it can sit behind the socket server or be used
// directly from tests.
type PromptCleanCore struct {
	inputText string
	stripHTML bool
	result    *PreprocessResult
}

// NewPromptCleanCore creates an empty session.
func NewPromptCleanCore() *PromptCleanCore {
	return &PromptCleanCore{
		result: PreprocessTrace(""),
	}
}

// ============================================================================
// Text Processing Methods
// ============================================================================

// SetInputText sets the raw prompt and reprocesses it.
func (pc *PromptCleanCore) SetInputText(text string) {
	pc.inputText = text
	pc.processText()
}

// GetInputText returns the current raw prompt.
func (pc *PromptCleanCore) GetInputText() string {
	return pc.inputText
}

// GetOutputText returns the processed prompt.
func (pc *PromptCleanCore) GetOutputText() string {
	return pc.result.Output
}

// Process runs the preprocessor over text without touching session state.
func (pc *PromptCleanCore) Process(text string) string {
	return Preprocess(text)
}

// SetStripHTML toggles HTML stripping of the input before preprocessing.
// Useful when the prompt was pasted from a web page.
func (pc *PromptCleanCore) SetStripHTML(enabled bool) {
	pc.stripHTML = enabled
	pc.processText()
}

// GetStripHTML reports whether HTML stripping is enabled.
func (pc *PromptCleanCore) GetStripHTML() bool {
	return pc.stripHTML
}

// StripHTML removes markup from text, leaving only its text content.
func (pc *PromptCleanCore) StripHTML(text string) string {
	return stripHTML(text)
}

// processText reruns the pipeline over the current input. Called
// automatically whenever session state changes.
func (pc *PromptCleanCore) processText() {
	text := pc.inputText
	if pc.stripHTML {
		text = stripHTML(text)
	}
	pc.result = PreprocessTrace(text)
}

// ============================================================================
// Query Methods
// ============================================================================

// GetActiveFlags returns the flags collected from the current input,
// in ascending order.
func (pc *PromptCleanCore) GetActiveFlags() []int {
	return append([]int{}, pc.result.ActiveFlags...)
}

// GetSuppressRules returns the suppression rules extracted from the
// current input, in the order they appeared.
func (pc *PromptCleanCore) GetSuppressRules() []SuppressRule {
	return append([]SuppressRule{}, pc.result.Rules...)
}

// GetStageTrace returns the text as it looked after each pipeline stage.
func (pc *PromptCleanCore) GetStageTrace() []StageResult {
	return append([]StageResult{}, pc.result.Stages...)
}

// ============================================================================
// Import/Export Methods
// ============================================================================

// Session is the serializable part of a core: the raw prompt and the
// options that affect how it is processed. The output is never stored,
// it is recomputed on import.
type Session struct {
	Input     string `json:"input"`
	StripHTML bool   `json:"strip_html"`
}

// ExportSession exports the session as a JSON string.
func (pc *PromptCleanCore) ExportSession() (string, error) {
	data, err := json.MarshalIndent(Session{
		Input:     pc.inputText,
		StripHTML: pc.stripHTML,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportSession replaces the session from a JSON string and reprocesses.
func (pc *PromptCleanCore) ImportSession(jsonStr string) error {
	var s Session
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return err
	}
	pc.inputText = s.Input
	pc.stripHTML = s.StripHTML
	pc.processText()
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

var reAnyTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML/XML tags from the input, dropping script and
// style elements entirely.
func stripHTML(input string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		// Fallback to simple regex-based tag stripping
		return html.UnescapeString(reAnyTag.ReplaceAllString(input, ""))
	}

	doc.Find("script, style").Remove()
	return doc.Text()
}
