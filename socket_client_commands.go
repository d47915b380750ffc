package main

import (
	"encoding/json"
	"fmt"
	"log"
)

// SocketClientCommands wraps a SocketClient to implement the
// PromptCleanCommands interface. This allows UI code to use the same
// interface whether connected to a socket server or using PromptCleanCore
// directly.
type SocketClientCommands struct {
	client *SocketClient
}

// NewSocketClientCommands creates a new socket client wrapper
func NewSocketClientCommands(client *SocketClient) *SocketClientCommands {
	return &SocketClientCommands{client: client}
}

// execute marshals and sends a command, returning the parsed response
func (s *SocketClientCommands) execute(action string, params map[string]interface{}) (map[string]interface{}, error) {
	cmdJSON, _ := json.Marshal(map[string]interface{}{
		"action": action,
		"params": params,
	})

	resp, err := s.client.Execute(string(cmdJSON))
	if err != nil {
		return nil, fmt.Errorf("socket error: %w", err)
	}

	if success, ok := resp["success"].(bool); ok && success {
		result, _ := resp["result"].(map[string]interface{})
		return result, nil
	}

	if errMsg, ok := resp["error"].(string); ok {
		return nil, fmt.Errorf("%s error: %s", action, errMsg)
	}

	return nil, fmt.Errorf("%s failed with unknown error", action)
}

// ============================================================================
// Text Processing Methods
// ============================================================================

// SetInputText implements PromptCleanCommands.SetInputText
func (s *SocketClientCommands) SetInputText(text string) {
	if _, err := s.execute("set_input_text", map[string]interface{}{"text": text}); err != nil {
		log.Printf("SetInputText: %v", err)
	}
}

// GetInputText implements PromptCleanCommands.GetInputText
func (s *SocketClientCommands) GetInputText() string {
	result, err := s.execute("get_input_text", nil)
	if err != nil {
		log.Printf("GetInputText: %v", err)
		return ""
	}
	text, _ := result["text"].(string)
	return text
}

// GetOutputText implements PromptCleanCommands.GetOutputText
func (s *SocketClientCommands) GetOutputText() string {
	result, err := s.execute("get_output_text", nil)
	if err != nil {
		log.Printf("GetOutputText: %v", err)
		return ""
	}
	output, _ := result["output"].(string)
	return output
}

// Process implements PromptCleanCommands.Process
func (s *SocketClientCommands) Process(text string) string {
	result, err := s.execute("process_text", map[string]interface{}{"text": text})
	if err != nil {
		log.Printf("Process: %v", err)
		return text
	}
	output, _ := result["output"].(string)
	return output
}

// ============================================================================
// Options
// ============================================================================

// SetStripHTML implements PromptCleanCommands.SetStripHTML
func (s *SocketClientCommands) SetStripHTML(enabled bool) {
	if _, err := s.execute("set_strip_html", map[string]interface{}{"enabled": enabled}); err != nil {
		log.Printf("SetStripHTML: %v", err)
	}
}

// GetStripHTML implements PromptCleanCommands.GetStripHTML
func (s *SocketClientCommands) GetStripHTML() bool {
	result, err := s.execute("get_strip_html", nil)
	if err != nil {
		log.Printf("GetStripHTML: %v", err)
		return false
	}
	enabled, _ := result["enabled"].(bool)
	return enabled
}

// StripHTML implements PromptCleanCommands.StripHTML
func (s *SocketClientCommands) StripHTML(text string) string {
	result, err := s.execute("strip_html", map[string]interface{}{"text": text})
	if err != nil {
		log.Printf("StripHTML: %v", err)
		return text
	}
	stripped, _ := result["text"].(string)
	return stripped
}

// ============================================================================
// Query Methods
// ============================================================================

// GetActiveFlags implements PromptCleanCommands.GetActiveFlags
func (s *SocketClientCommands) GetActiveFlags() []int {
	result, err := s.execute("get_active_flags", nil)
	if err != nil {
		log.Printf("GetActiveFlags: %v", err)
		return nil
	}

	raw, _ := result["flags"].([]interface{})
	flags := make([]int, 0, len(raw))
	for _, v := range raw {
		// JSON numbers decode as float64
		if f, ok := v.(float64); ok {
			flags = append(flags, int(f))
		}
	}
	return flags
}

// GetSuppressRules implements PromptCleanCommands.GetSuppressRules
func (s *SocketClientCommands) GetSuppressRules() []SuppressRule {
	result, err := s.execute("get_suppress_rules", nil)
	if err != nil {
		log.Printf("GetSuppressRules: %v", err)
		return nil
	}

	// Round-trip through JSON to decode into the typed slice
	data, err := json.Marshal(result["rules"])
	if err != nil {
		log.Printf("GetSuppressRules: %v", err)
		return nil
	}
	var rules []SuppressRule
	if err := json.Unmarshal(data, &rules); err != nil {
		log.Printf("GetSuppressRules: %v", err)
		return nil
	}
	return rules
}

// GetStageTrace implements PromptCleanCommands.GetStageTrace
func (s *SocketClientCommands) GetStageTrace() []StageResult {
	result, err := s.execute("get_stage_trace", nil)
	if err != nil {
		log.Printf("GetStageTrace: %v", err)
		return nil
	}

	data, err := json.Marshal(result["stages"])
	if err != nil {
		log.Printf("GetStageTrace: %v", err)
		return nil
	}
	var stages []StageResult
	if err := json.Unmarshal(data, &stages); err != nil {
		log.Printf("GetStageTrace: %v", err)
		return nil
	}
	return stages
}

// ============================================================================
// Import/Export Methods
// ============================================================================

// ExportSession implements PromptCleanCommands.ExportSession
func (s *SocketClientCommands) ExportSession() (string, error) {
	result, err := s.execute("export_session", nil)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(result["session"], "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportSession implements PromptCleanCommands.ImportSession
func (s *SocketClientCommands) ImportSession(jsonStr string) error {
	var session interface{}
	if err := json.Unmarshal([]byte(jsonStr), &session); err != nil {
		return fmt.Errorf("invalid session JSON: %w", err)
	}

	_, err := s.execute("import_session", map[string]interface{}{"session": session})
	return err
}
