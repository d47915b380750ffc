package main

import (
	"encoding/json"
)

// Command represents a JSON command for remote clients
type Command struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params"`
}

// Response represents a JSON response from command execution
type Response struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ExecuteCommand executes a JSON command and returns a JSON response
func (pc *PromptCleanCore) ExecuteCommand(cmdJSON string) string {
	var cmd Command
	if err := json.Unmarshal([]byte(cmdJSON), &cmd); err != nil {
		return pc.errorResponse("Invalid JSON: " + err.Error())
	}

	switch cmd.Action {
	case "set_input_text":
		return pc.cmdSetInputText(cmd.Params)
	case "get_input_text":
		return pc.cmdGetInputText(cmd.Params)
	case "get_output_text":
		return pc.cmdGetOutputText(cmd.Params)
	case "process_text":
		return pc.cmdProcessText(cmd.Params)
	case "set_strip_html":
		return pc.cmdSetStripHTML(cmd.Params)
	case "get_strip_html":
		return pc.cmdGetStripHTML(cmd.Params)
	case "strip_html":
		return pc.cmdStripHTML(cmd.Params)
	case "get_active_flags":
		return pc.cmdGetActiveFlags(cmd.Params)
	case "get_suppress_rules":
		return pc.cmdGetSuppressRules(cmd.Params)
	case "get_stage_trace":
		return pc.cmdGetStageTrace(cmd.Params)
	case "list_stages":
		return pc.cmdListStages(cmd.Params)
	case "export_session":
		return pc.cmdExportSession(cmd.Params)
	case "import_session":
		return pc.cmdImportSession(cmd.Params)
	default:
		return pc.errorResponse("Unknown action: " + cmd.Action)
	}
}

// ============================================================================
// Command Handlers
// ============================================================================

// cmdSetInputText sets the raw prompt and processes it
func (pc *PromptCleanCore) cmdSetInputText(params map[string]interface{}) string {
	text := getStr(params, "text", "")
	pc.SetInputText(text)
	return pc.successResponse(map[string]interface{}{
		"success": true,
	})
}

// cmdGetInputText returns the current raw prompt
func (pc *PromptCleanCore) cmdGetInputText(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"text": pc.GetInputText(),
	})
}

// cmdGetOutputText returns the processed prompt
func (pc *PromptCleanCore) cmdGetOutputText(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"output": pc.GetOutputText(),
	})
}

// cmdProcessText runs the preprocessor one-shot, without touching the session
func (pc *PromptCleanCore) cmdProcessText(params map[string]interface{}) string {
	text, ok := params["text"]
	if !ok {
		return pc.errorResponse("Missing required parameter: text")
	}
	strText, ok := text.(string)
	if !ok {
		return pc.errorResponse("Parameter text must be a string")
	}
	return pc.successResponse(map[string]interface{}{
		"output": pc.Process(strText),
	})
}

// cmdSetStripHTML toggles HTML stripping of the input
func (pc *PromptCleanCore) cmdSetStripHTML(params map[string]interface{}) string {
	enabled := getBool(params, "enabled", false)
	pc.SetStripHTML(enabled)
	return pc.successResponse(map[string]interface{}{
		"success": true,
	})
}

// cmdGetStripHTML reports whether HTML stripping is enabled
func (pc *PromptCleanCore) cmdGetStripHTML(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"enabled": pc.GetStripHTML(),
	})
}

// cmdStripHTML strips markup from the given text
func (pc *PromptCleanCore) cmdStripHTML(params map[string]interface{}) string {
	text, ok := params["text"]
	if !ok {
		return pc.errorResponse("Missing required parameter: text")
	}
	strText, ok := text.(string)
	if !ok {
		return pc.errorResponse("Parameter text must be a string")
	}
	return pc.successResponse(map[string]interface{}{
		"text": pc.StripHTML(strText),
	})
}

// cmdGetActiveFlags returns the flags collected from the current input
func (pc *PromptCleanCore) cmdGetActiveFlags(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"flags": pc.GetActiveFlags(),
	})
}

// cmdGetSuppressRules returns the extracted suppression rules
func (pc *PromptCleanCore) cmdGetSuppressRules(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"rules": pc.GetSuppressRules(),
	})
}

// cmdGetStageTrace returns the per-stage snapshots of the current input
func (pc *PromptCleanCore) cmdGetStageTrace(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"stages": pc.GetStageTrace(),
	})
}

// cmdListStages returns the pipeline stage names in execution order
func (pc *PromptCleanCore) cmdListStages(params map[string]interface{}) string {
	return pc.successResponse(map[string]interface{}{
		"stages": StageNames(),
	})
}

// cmdExportSession exports the session as JSON
func (pc *PromptCleanCore) cmdExportSession(params map[string]interface{}) string {
	jsonStr, err := pc.ExportSession()
	if err != nil {
		return pc.errorResponse(err.Error())
	}

	// Parse the JSON string back to return as an object
	var session interface{}
	if err := json.Unmarshal([]byte(jsonStr), &session); err != nil {
		return pc.errorResponse(err.Error())
	}

	return pc.successResponse(map[string]interface{}{
		"session": session,
	})
}

// cmdImportSession imports a session from JSON
func (pc *PromptCleanCore) cmdImportSession(params map[string]interface{}) string {
	sessionData, ok := params["session"]
	if !ok {
		return pc.errorResponse("Missing required parameter: session")
	}

	// Convert the parameter to JSON string
	jsonBytes, err := json.Marshal(sessionData)
	if err != nil {
		return pc.errorResponse("Invalid session parameter: " + err.Error())
	}

	if err := pc.ImportSession(string(jsonBytes)); err != nil {
		return pc.errorResponse(err.Error())
	}

	return pc.successResponse(map[string]interface{}{
		"success": true,
	})
}

// ============================================================================
// Helper Functions
// ============================================================================

// getStr safely extracts a string parameter, with a default value
func getStr(params map[string]interface{}, key, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// getBool safely extracts a boolean parameter, with a default value
func getBool(params map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := params[key]; ok {
		if boolVal, ok := val.(bool); ok {
			return boolVal
		}
	}
	return defaultValue
}

// successResponse creates a successful response
func (pc *PromptCleanCore) successResponse(result interface{}) string {
	resp := Response{
		Success: true,
		Result:  result,
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

// errorResponse creates an error response
func (pc *PromptCleanCore) errorResponse(errorMsg string) string {
	resp := Response{
		Success: false,
		Error:   errorMsg,
	}
	data, _ := json.Marshal(resp)
	return string(data)
}
