package main

// PromptCleanCommands defines the interface for all PromptClean operations.
// Both PromptCleanCore (direct implementation) and SocketClientCommands
// (socket wrapper) implement this interface, ensuring feature parity between
// in-process and socket-based access.
type PromptCleanCommands interface {
	// =========================================================================
	// Text Processing - Set input, read output, one-shot processing
	// =========================================================================

	// SetInputText sets the raw prompt and reprocesses it
	SetInputText(text string)

	// GetInputText returns the current raw prompt
	GetInputText() string

	// GetOutputText returns the processed prompt
	GetOutputText() string

	// Process runs the preprocessor over text without touching session state
	Process(text string) string

	// =========================================================================
	// Options
	// =========================================================================

	// SetStripHTML toggles HTML stripping of the input before preprocessing
	SetStripHTML(enabled bool)

	// GetStripHTML reports whether HTML stripping is enabled
	GetStripHTML() bool

	// StripHTML removes markup from text without touching session state
	StripHTML(text string) string

	// =========================================================================
	// Query Operations - Inspect what the pipeline did
	// =========================================================================

	// GetActiveFlags returns the flags collected from the current input
	GetActiveFlags() []int

	// GetSuppressRules returns the extracted suppression rules in order
	GetSuppressRules() []SuppressRule

	// GetStageTrace returns the text after each pipeline stage
	GetStageTrace() []StageResult

	// =========================================================================
	// Import/Export - Serialize and deserialize the session
	// =========================================================================

	// ExportSession returns the session as a JSON string
	ExportSession() (string, error)

	// ImportSession loads a session from a JSON string
	ImportSession(jsonStr string) error
}
