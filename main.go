package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gotk3/gotk3/gdk"
	"github.com/gotk3/gotk3/gtk"
)

const (
	appTitle  = "PromptClean"
	appWidth  = 1000
	appHeight = 600

	defaultSocketPath = "/tmp/promptclean.sock"
)

// PromptClean is the GTK front end over a PromptCleanCore. The input pane
// holds the raw bracket-language prompt; the output pane and the analysis
// panel update on every keystroke.
type PromptClean struct {
	window        *gtk.Window
	inputView     *gtk.TextView
	outputView    *gtk.TextView
	inputBuffer   *gtk.TextBuffer
	outputBuffer  *gtk.TextBuffer
	flagsLabel    *gtk.Label
	rulesListBox  *gtk.ListBox
	stagesListBox *gtk.ListBox
	stripCheckbox *gtk.CheckButton
	copyButton    *gtk.Button
	core          *PromptCleanCore
}

func main() {
	runREPL := flag.Bool("repl", false, "Run the interactive REPL instead of the GUI")
	serve := flag.Bool("serve", false, "Run the headless socket server instead of the GUI")
	oneShot := flag.Bool("process", false, "Process stdin to stdout and exit")
	socketPath := flag.String("socket", defaultSocketPath, "Path to the socket file")
	flag.Parse()

	switch {
	case *oneShot:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal("Failed to read stdin:", err)
		}
		fmt.Println(Preprocess(string(data)))

	case *serve:
		core := NewPromptCleanCore()
		server := NewSocketServer(*socketPath, core)
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start socket server:", err)
		}
		log.Printf("promptclean listening on %s", *socketPath)
		server.Wait()

	case *runREPL:
		// Prefer a running socket server; fall back to an in-process core
		session, err := NewREPLSession(*socketPath)
		if err != nil {
			session = NewLocalREPLSession(NewPromptCleanCore())
		}
		if err := session.Run(); err != nil {
			log.Fatal(err)
		}

	default:
		gtk.Init(nil)

		app := &PromptClean{core: NewPromptCleanCore()}
		app.BuildUI()

		gtk.Main()
	}
}

func (pc *PromptClean) BuildUI() {
	// Create main window
	win, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		log.Fatal("Unable to create window:", err)
	}
	pc.window = win
	pc.window.SetTitle(appTitle)
	pc.window.SetDefaultSize(appWidth, appHeight)
	pc.window.Connect("destroy", func() {
		gtk.MainQuit()
	})

	// Create main vertical box
	mainBox, _ := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 5)
	mainBox.SetMarginTop(5)
	mainBox.SetMarginBottom(5)
	mainBox.SetMarginStart(5)
	mainBox.SetMarginEnd(5)

	// Toolbar: strip-HTML toggle on the left, copy button on the right
	toolbar, _ := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 5)

	stripCheckbox, _ := gtk.CheckButtonNewWithLabel("Strip HTML from input")
	pc.stripCheckbox = stripCheckbox
	toolbar.PackStart(stripCheckbox, false, false, 0)

	// Spacer
	spacer, _ := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 0)
	toolbar.PackStart(spacer, true, true, 0)

	copyButton, _ := gtk.ButtonNewWithLabel("Copy to Clipboard")
	pc.copyButton = copyButton
	toolbar.PackStart(copyButton, false, false, 0)

	mainBox.PackStart(toolbar, false, false, 0)

	// Create main horizontal paned (analysis panel | text panes)
	mainPaned, _ := gtk.PanedNew(gtk.ORIENTATION_HORIZONTAL)
	mainPaned.SetPosition(250) // Analysis panel width

	// Create analysis panel (left side)
	analysisPanel := pc.createAnalysisPanel()
	mainPaned.Add1(analysisPanel)

	// Create horizontal paned for input/output (right side)
	textPaned, _ := gtk.PanedNew(gtk.ORIENTATION_HORIZONTAL)
	textPaned.SetPosition((appWidth - 250) / 2)

	// Create input pane
	inputFrame := pc.createTextPane("Prompt", true)
	textPaned.Add1(inputFrame)

	// Create output pane
	outputFrame := pc.createTextPane("Processed", false)
	textPaned.Add2(outputFrame)

	mainPaned.Add2(textPaned)

	mainBox.PackStart(mainPaned, true, true, 0)

	pc.window.Add(mainBox)
	pc.window.ShowAll()

	// Wire up event handlers for real-time processing
	pc.setupEventHandlers()
}

// createAnalysisPanel builds the left-hand panel showing what the pipeline
// learned from the current prompt: active flags, suppression rules, and the
// per-stage trace.
func (pc *PromptClean) createAnalysisPanel() *gtk.Box {
	panel, _ := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 5)

	flagsTitle, _ := gtk.LabelNew("Active Flags")
	flagsTitle.SetMarkup("<b>Active Flags</b>")
	panel.PackStart(flagsTitle, false, false, 5)

	flagsLabel, _ := gtk.LabelNew("none")
	pc.flagsLabel = flagsLabel
	flagsLabel.SetXAlign(0)
	flagsLabel.SetMarginStart(5)
	panel.PackStart(flagsLabel, false, false, 0)

	rulesTitle, _ := gtk.LabelNew("Suppression Rules")
	rulesTitle.SetMarkup("<b>Suppression Rules</b>")
	panel.PackStart(rulesTitle, false, false, 5)

	rulesScrolled, _ := gtk.ScrolledWindowNew(nil, nil)
	rulesScrolled.SetPolicy(gtk.POLICY_AUTOMATIC, gtk.POLICY_AUTOMATIC)
	rulesScrolled.SetSizeRequest(200, -1)

	rulesListBox, _ := gtk.ListBoxNew()
	pc.rulesListBox = rulesListBox
	rulesListBox.SetSelectionMode(gtk.SELECTION_NONE)

	rulesScrolled.Add(rulesListBox)
	panel.PackStart(rulesScrolled, true, true, 0)

	stagesTitle, _ := gtk.LabelNew("Pipeline Stages")
	stagesTitle.SetMarkup("<b>Pipeline Stages</b>")
	panel.PackStart(stagesTitle, false, false, 5)

	stagesScrolled, _ := gtk.ScrolledWindowNew(nil, nil)
	stagesScrolled.SetPolicy(gtk.POLICY_AUTOMATIC, gtk.POLICY_AUTOMATIC)
	stagesScrolled.SetSizeRequest(200, -1)

	stagesListBox, _ := gtk.ListBoxNew()
	pc.stagesListBox = stagesListBox
	stagesListBox.SetSelectionMode(gtk.SELECTION_NONE)

	stagesScrolled.Add(stagesListBox)
	panel.PackStart(stagesScrolled, true, true, 0)

	return panel
}

func (pc *PromptClean) createTextPane(title string, isInput bool) *gtk.Frame {
	frame, _ := gtk.FrameNew(title)

	scrolledWindow, _ := gtk.ScrolledWindowNew(nil, nil)
	scrolledWindow.SetPolicy(gtk.POLICY_AUTOMATIC, gtk.POLICY_AUTOMATIC)

	textView, _ := gtk.TextViewNew()
	textView.SetWrapMode(gtk.WRAP_WORD)
	textView.SetMonospace(true)

	// Get the text buffer
	buffer, _ := textView.GetBuffer()

	if isInput {
		pc.inputView = textView
		pc.inputBuffer = buffer
		textView.SetEditable(true)
	} else {
		pc.outputView = textView
		pc.outputBuffer = buffer
		textView.SetEditable(false)
	}

	scrolledWindow.Add(textView)
	frame.Add(scrolledWindow)

	return frame
}

// setupEventHandlers wires up all event handlers for real-time processing
func (pc *PromptClean) setupEventHandlers() {
	// Input buffer changed - process text in real-time
	pc.inputBuffer.Connect("changed", func() {
		pc.processText()
	})

	// Strip-HTML toggle reprocesses the current input
	pc.stripCheckbox.Connect("toggled", func() {
		pc.core.SetStripHTML(pc.stripCheckbox.GetActive())
		pc.refreshFromCore()
	})

	// Copy button - copy output to clipboard
	pc.copyButton.Connect("clicked", func() {
		pc.copyToClipboard()
	})
}

// processText runs the preprocessor over the input pane and updates the
// output pane and analysis panel
func (pc *PromptClean) processText() {
	// Get input text
	startIter, endIter := pc.inputBuffer.GetBounds()
	input, _ := pc.inputBuffer.GetText(startIter, endIter, true)

	pc.core.SetInputText(input)
	pc.refreshFromCore()
}

// refreshFromCore updates output pane, flag label, rule and stage lists
// from the core's current state
func (pc *PromptClean) refreshFromCore() {
	pc.outputBuffer.SetText(pc.core.GetOutputText())

	flags := pc.core.GetActiveFlags()
	if len(flags) == 0 {
		pc.flagsLabel.SetText("none")
	} else {
		parts := make([]string, len(flags))
		for i, n := range flags {
			parts[i] = strconv.Itoa(n)
		}
		pc.flagsLabel.SetText(strings.Join(parts, ", "))
	}

	pc.refreshRulesList()
	pc.refreshStagesList()
}

// refreshRulesList refreshes the suppression-rule list display
func (pc *PromptClean) refreshRulesList() {
	// Clear existing rows
	pc.rulesListBox.GetChildren().Foreach(func(item interface{}) {
		widget := item.(*gtk.Widget)
		pc.rulesListBox.Remove(widget)
	})

	// Add new rows
	for _, rule := range pc.core.GetSuppressRules() {
		label := rule.Trigger + " → " + strings.Join(rule.Targets, ", ")

		row, _ := gtk.LabelNew(label)
		row.SetXAlign(0) // Left align
		row.SetMarginStart(5)
		row.SetMarginEnd(5)
		row.SetMarginTop(3)
		row.SetMarginBottom(3)

		pc.rulesListBox.Add(row)
	}

	pc.rulesListBox.ShowAll()
}

// refreshStagesList refreshes the pipeline-stage trace display
func (pc *PromptClean) refreshStagesList() {
	pc.stagesListBox.GetChildren().Foreach(func(item interface{}) {
		widget := item.(*gtk.Widget)
		pc.stagesListBox.Remove(widget)
	})

	for _, stage := range pc.core.GetStageTrace() {
		label := stage.Name + ": " + shortenString(stage.Output, 40)

		row, _ := gtk.LabelNew(label)
		row.SetXAlign(0)
		row.SetMarginStart(5)
		row.SetMarginEnd(5)
		row.SetMarginTop(3)
		row.SetMarginBottom(3)

		pc.stagesListBox.Add(row)
	}

	pc.stagesListBox.ShowAll()
}

// copyToClipboard copies the output text to clipboard
func (pc *PromptClean) copyToClipboard() {
	clipboard, err := gtk.ClipboardGet(gdk.GdkAtomIntern("CLIPBOARD", true))
	if err != nil {
		log.Println("Failed to get clipboard:", err)
		return
	}

	startIter, endIter := pc.outputBuffer.GetBounds()
	text, _ := pc.outputBuffer.GetText(startIter, endIter, true)

	clipboard.SetText(text)
}
