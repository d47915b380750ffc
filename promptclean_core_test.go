package main

import (
	"encoding/json"
	"strings"
	"testing"
)

// ============================================================================
// Session State Tests
// ============================================================================

// TestNewCoreDefaults tests the state of a fresh session
func TestNewCoreDefaults(t *testing.T) {
	core := NewPromptCleanCore()

	if core.GetInputText() != "" {
		t.Errorf("Expected empty input, got %q", core.GetInputText())
	}
	if core.GetOutputText() != "" {
		t.Errorf("Expected empty output, got %q", core.GetOutputText())
	}
	if core.GetStripHTML() {
		t.Error("Strip HTML should default to off")
	}
	if len(core.GetStageTrace()) != len(StageNames()) {
		t.Errorf("Expected %d stages, got %d", len(StageNames()), len(core.GetStageTrace()))
	}
}

// TestSetInputText tests that setting input reprocesses immediately
func TestSetInputText(t *testing.T) {
	core := NewPromptCleanCore()

	core.SetInputText("[1] [1: kept]")

	if core.GetInputText() != "[1] [1: kept]" {
		t.Errorf("Input not preserved, got %q", core.GetInputText())
	}
	if core.GetOutputText() != "kept" {
		t.Errorf("Expected output 'kept', got %q", core.GetOutputText())
	}
}

// TestActiveFlagsQuery tests the flag query after processing
func TestActiveFlagsQuery(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("[3] [1] x")

	flags := core.GetActiveFlags()
	if len(flags) != 2 || flags[0] != 1 || flags[1] != 3 {
		t.Errorf("Expected flags [1 3], got %v", flags)
	}
}

// TestSuppressRulesQuery tests the rules query after processing
func TestSuppressRulesQuery(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("a/@/b/@/, a, b")

	rules := core.GetSuppressRules()
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}
	if rules[0].Trigger != "a" || len(rules[0].Targets) != 1 || rules[0].Targets[0] != "b" {
		t.Errorf("Unexpected rule: %+v", rules[0])
	}
	if core.GetOutputText() != "a, a" {
		t.Errorf("Expected output 'a, a', got %q", core.GetOutputText())
	}
}

// TestProcessStateless tests that one-shot processing leaves the session alone
func TestProcessStateless(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("[1] [1: session]")

	result := core.Process("[2] [2: one shot]")
	if result != "one shot" {
		t.Errorf("Expected 'one shot', got %q", result)
	}

	if core.GetInputText() != "[1] [1: session]" {
		t.Errorf("Session input changed to %q", core.GetInputText())
	}
	if core.GetOutputText() != "session" {
		t.Errorf("Session output changed to %q", core.GetOutputText())
	}
}

// TestStageTraceQuery tests that the trace matches the stage list
func TestStageTraceQuery(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("[1] a, [1: b]")

	trace := core.GetStageTrace()
	names := StageNames()
	if len(trace) != len(names) {
		t.Fatalf("Expected %d stages, got %d", len(names), len(trace))
	}
	for i, stage := range trace {
		if stage.Name != names[i] {
			t.Errorf("Stage %d: expected %q, got %q", i, names[i], stage.Name)
		}
	}
	if trace[len(trace)-1].Output != core.GetOutputText() {
		t.Error("Final stage should match the output text")
	}
}

// ============================================================================
// HTML Stripping Tests
// ============================================================================

// TestStripHTMLHelper tests one-shot markup removal
func TestStripHTMLHelper(t *testing.T) {
	core := NewPromptCleanCore()

	result := core.StripHTML("<b>bold</b> text")
	if result != "bold text" {
		t.Errorf("Expected 'bold text', got %q", result)
	}
}

// TestStripHTMLRemovesScripts tests that script content is dropped, not
// just the tags
func TestStripHTMLRemovesScripts(t *testing.T) {
	core := NewPromptCleanCore()

	result := core.StripHTML("<script>alert(1)</script>hello")
	if strings.Contains(result, "alert") {
		t.Errorf("Script content survived: %q", result)
	}
	if !strings.Contains(result, "hello") {
		t.Errorf("Text content lost: %q", result)
	}
}

// TestStripHTMLToggle tests that enabling the option strips the input
// before the bracket pipeline runs
func TestStripHTMLToggle(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetStripHTML(true)

	if !core.GetStripHTML() {
		t.Fatal("Strip HTML should be enabled")
	}

	core.SetInputText("<p>[1] [1: kept]</p>")
	if core.GetOutputText() != "kept" {
		t.Errorf("Expected 'kept', got %q", core.GetOutputText())
	}

	// with stripping off the tags flow through the pipeline untouched
	core.SetStripHTML(false)
	if core.GetOutputText() != "<p> kept</p>" {
		t.Errorf("Expected markup back in output, got %q", core.GetOutputText())
	}
}

// ============================================================================
// Import/Export Tests
// ============================================================================

// TestExportSession tests exporting the session as JSON
func TestExportSession(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("[1] [1: hello]")
	core.SetStripHTML(true)

	exported, err := core.ExportSession()
	if err != nil {
		t.Fatalf("Export should succeed, got error: %v", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(exported), &s); err != nil {
		t.Fatalf("Exported JSON invalid: %v", err)
	}
	if s.Input != "[1] [1: hello]" {
		t.Errorf("Expected input preserved, got %q", s.Input)
	}
	if !s.StripHTML {
		t.Error("Expected strip_html true in export")
	}
}

// TestRoundTripExportImport tests that an imported session reproduces the
// same output
func TestRoundTripExportImport(t *testing.T) {
	core := NewPromptCleanCore()
	core.SetInputText("[1] face focus, [1: brown hair]")
	expectedOutput := core.GetOutputText()

	exported, _ := core.ExportSession()

	core2 := NewPromptCleanCore()
	if err := core2.ImportSession(exported); err != nil {
		t.Fatalf("Import should succeed, got error: %v", err)
	}

	if core2.GetInputText() != core.GetInputText() {
		t.Errorf("Input differs after import: %q", core2.GetInputText())
	}
	if core2.GetOutputText() != expectedOutput {
		t.Errorf("Round-trip failed: expected %q, got %q", expectedOutput, core2.GetOutputText())
	}
}

// TestImportInvalidSession tests importing invalid JSON
func TestImportInvalidSession(t *testing.T) {
	core := NewPromptCleanCore()

	if err := core.ImportSession("not json"); err == nil {
		t.Error("Expected error when importing invalid JSON")
	}
}

// ============================================================================
// JSON Command Tests
// ============================================================================

func execute(t *testing.T, core *PromptCleanCore, cmdJSON string) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal([]byte(core.ExecuteCommand(cmdJSON)), &resp); err != nil {
		t.Fatalf("Response is not valid JSON: %v", err)
	}
	return resp
}

func resultMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result is not an object: %v", resp.Result)
	}
	return m
}

// TestCommandSetAndGetText tests the input/output commands
func TestCommandSetAndGetText(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"set_input_text","params":{"text":"[1] [1: kept]"}}`)
	if !resp.Success {
		t.Fatalf("set_input_text failed: %s", resp.Error)
	}

	resp = execute(t, core, `{"action":"get_output_text","params":{}}`)
	if !resp.Success {
		t.Fatalf("get_output_text failed: %s", resp.Error)
	}
	if resultMap(t, resp)["output"] != "kept" {
		t.Errorf("Expected output 'kept', got %v", resp.Result)
	}

	resp = execute(t, core, `{"action":"get_input_text","params":{}}`)
	if resultMap(t, resp)["text"] != "[1] [1: kept]" {
		t.Errorf("Expected input preserved, got %v", resp.Result)
	}
}

// TestCommandProcessText tests one-shot processing over the wire format
func TestCommandProcessText(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"process_text","params":{"text":"[1] [1: x]"}}`)
	if !resp.Success {
		t.Fatalf("process_text failed: %s", resp.Error)
	}
	if resultMap(t, resp)["output"] != "x" {
		t.Errorf("Expected output 'x', got %v", resp.Result)
	}
}

// TestCommandProcessTextMissingParam tests the required text parameter
func TestCommandProcessTextMissingParam(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"process_text","params":{}}`)
	if resp.Success {
		t.Error("Expected failure without text parameter")
	}

	resp = execute(t, core, `{"action":"process_text","params":{"text":42}}`)
	if resp.Success {
		t.Error("Expected failure with non-string text parameter")
	}
}

// TestCommandActiveFlags tests flag reporting over the wire format
func TestCommandActiveFlags(t *testing.T) {
	core := NewPromptCleanCore()
	execute(t, core, `{"action":"set_input_text","params":{"text":"[2] [1] x"}}`)

	resp := execute(t, core, `{"action":"get_active_flags","params":{}}`)
	if !resp.Success {
		t.Fatalf("get_active_flags failed: %s", resp.Error)
	}

	flags, ok := resultMap(t, resp)["flags"].([]interface{})
	if !ok {
		t.Fatalf("Flags is not an array: %v", resp.Result)
	}
	if len(flags) != 2 || flags[0].(float64) != 1 || flags[1].(float64) != 2 {
		t.Errorf("Expected flags [1 2], got %v", flags)
	}
}

// TestCommandSuppressRules tests rule reporting over the wire format
func TestCommandSuppressRules(t *testing.T) {
	core := NewPromptCleanCore()
	execute(t, core, `{"action":"set_input_text","params":{"text":"a/@/b, c/@/, a"}}`)

	resp := execute(t, core, `{"action":"get_suppress_rules","params":{}}`)
	if !resp.Success {
		t.Fatalf("get_suppress_rules failed: %s", resp.Error)
	}

	rules, ok := resultMap(t, resp)["rules"].([]interface{})
	if !ok {
		t.Fatalf("Rules is not an array: %v", resp.Result)
	}
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}

	rule := rules[0].(map[string]interface{})
	if rule["trigger"] != "a" {
		t.Errorf("Expected trigger 'a', got %v", rule["trigger"])
	}
}

// TestCommandListStages tests the stage list command
func TestCommandListStages(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"list_stages","params":{}}`)
	if !resp.Success {
		t.Fatalf("list_stages failed: %s", resp.Error)
	}

	stages, ok := resultMap(t, resp)["stages"].([]interface{})
	if !ok {
		t.Fatalf("Stages is not an array: %v", resp.Result)
	}
	if len(stages) != len(StageNames()) {
		t.Errorf("Expected %d stages, got %d", len(StageNames()), len(stages))
	}
}

// TestCommandStripHTML tests the markup commands over the wire format
func TestCommandStripHTML(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"strip_html","params":{"text":"<i>hi</i>"}}`)
	if !resp.Success {
		t.Fatalf("strip_html failed: %s", resp.Error)
	}
	if resultMap(t, resp)["text"] != "hi" {
		t.Errorf("Expected 'hi', got %v", resp.Result)
	}

	execute(t, core, `{"action":"set_strip_html","params":{"enabled":true}}`)
	resp = execute(t, core, `{"action":"get_strip_html","params":{}}`)
	if resultMap(t, resp)["enabled"] != true {
		t.Errorf("Expected enabled true, got %v", resp.Result)
	}
}

// TestCommandSessionRoundTrip tests export/import through the wire format
func TestCommandSessionRoundTrip(t *testing.T) {
	core := NewPromptCleanCore()
	execute(t, core, `{"action":"set_input_text","params":{"text":"[1] [1: wired]"}}`)

	resp := execute(t, core, `{"action":"export_session","params":{}}`)
	if !resp.Success {
		t.Fatalf("export_session failed: %s", resp.Error)
	}
	session := resultMap(t, resp)["session"]

	core2 := NewPromptCleanCore()
	importCmd, _ := json.Marshal(Command{
		Action: "import_session",
		Params: map[string]interface{}{"session": session},
	})
	resp = execute(t, core2, string(importCmd))
	if !resp.Success {
		t.Fatalf("import_session failed: %s", resp.Error)
	}

	if core2.GetOutputText() != "wired" {
		t.Errorf("Expected output 'wired' after import, got %q", core2.GetOutputText())
	}
}

// TestCommandUnknownAction tests the error path for unknown actions
func TestCommandUnknownAction(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{"action":"does_not_exist","params":{}}`)
	if resp.Success {
		t.Error("Expected failure for unknown action")
	}
	if !strings.Contains(resp.Error, "does_not_exist") {
		t.Errorf("Error should name the action, got %q", resp.Error)
	}
}

// TestCommandInvalidJSON tests the error path for malformed commands
func TestCommandInvalidJSON(t *testing.T) {
	core := NewPromptCleanCore()

	resp := execute(t, core, `{not json`)
	if resp.Success {
		t.Error("Expected failure for invalid JSON")
	}
}
