package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// REPLCommand represents a parsed command. Rest holds the raw text after
// the verb with its original case, for commands that take free-form prompt
// text rather than arguments.
type REPLCommand struct {
	Verb   string
	Object string
	Args   []string
	Rest   string
}

// REPLFormatter handles output formatting
type REPLFormatter struct {
	useColor bool
}

// NewREPLFormatter creates a new formatter
func NewREPLFormatter(useColor bool) *REPLFormatter {
	return &REPLFormatter{useColor: useColor}
}

// PrintSuccess prints a success message
func (f *REPLFormatter) PrintSuccess(message string) {
	if f.useColor {
		color.Green("✓ %s\n", message)
	} else {
		fmt.Printf("✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *REPLFormatter) PrintError(message string) {
	if f.useColor {
		color.Red("✗ Error: %s\n", message)
	} else {
		fmt.Printf("✗ Error: %s\n", message)
	}
}

// PrintInfo prints an info message
func (f *REPLFormatter) PrintInfo(message string) {
	if f.useColor {
		color.Cyan("ℹ %s\n", message)
	} else {
		fmt.Printf("ℹ %s\n", message)
	}
}

// PrintOutput prints processed prompt text
func (f *REPLFormatter) PrintOutput(text string) {
	if f.useColor {
		color.Yellow("%s\n", text)
	} else {
		fmt.Println(text)
	}
}

// PrintTable prints a formatted ASCII table
func (f *REPLFormatter) PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Print header
	for i, h := range headers {
		fmt.Printf("%-*s", widths[i], h)
		if i < len(headers)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()

	// Print separator
	for i := range headers {
		for j := 0; j < widths[i]; j++ {
			fmt.Print("-")
		}
		if i < len(headers)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()

	// Print rows
	for _, row := range rows {
		for i, cell := range row {
			fmt.Printf("%-*s", widths[i], cell)
			if i < len(headers)-1 {
				fmt.Print("  ")
			}
		}
		fmt.Println()
	}
}

// PrintRules prints suppression rules as a tree
func (f *REPLFormatter) PrintRules(rules []SuppressRule) {
	if len(rules) == 0 {
		f.PrintInfo("No suppression rules in the current input")
		return
	}

	for i, rule := range rules {
		branch := "├─ "
		if i == len(rules)-1 {
			branch = "└─ "
		}
		if f.useColor {
			fmt.Print(branch + color.CyanString(rule.Trigger) + "\n")
		} else {
			fmt.Printf("%s%s\n", branch, rule.Trigger)
		}
		indent := "│  "
		if i == len(rules)-1 {
			indent = "   "
		}
		for j, target := range rule.Targets {
			leaf := "├─ "
			if j == len(rule.Targets)-1 {
				leaf = "└─ "
			}
			if f.useColor {
				fmt.Print(indent + leaf + color.YellowString(target) + "\n")
			} else {
				fmt.Printf("%s%s%s\n", indent, leaf, target)
			}
		}
	}
}

// ParseCommand parses a verb-first command string
func ParseCommand(input string) (*REPLCommand, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	// Split by whitespace, but handle quoted strings
	parts := splitArgs(input)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := &REPLCommand{
		Verb: strings.ToLower(parts[0]),
	}

	if len(parts) > 1 {
		cmd.Object = strings.ToLower(parts[1])
		cmd.Args = parts[2:]
	}

	if fields := strings.SplitN(input, " ", 2); len(fields) == 2 {
		cmd.Rest = strings.TrimSpace(fields[1])
	}

	return cmd, nil
}

// splitArgs splits a command string into arguments, respecting quotes
func splitArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)
	escaped := false

	for _, ch := range input {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		if (ch == '"' || ch == '\'') && !inQuotes {
			inQuotes = true
			quoteChar = ch
			continue
		}

		if ch == quoteChar && inQuotes {
			inQuotes = false
			quoteChar = 0
			continue
		}

		if ch == ' ' && !inQuotes {
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
			continue
		}

		current.WriteRune(ch)
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}

// ExecuteREPLCommand executes a REPL command and returns the result
func ExecuteREPLCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter, rl *readline.Instance) error {
	switch cmd.Verb {
	// Text processing
	case "process":
		return handleProcessCommand(cmd, commands, formatter)
	case "set":
		return handleSetCommand(cmd, commands, formatter, rl)
	case "strip":
		return handleStripCommand(cmd, commands, formatter)

	// Query commands
	case "show":
		return handleShowCommand(cmd, commands, formatter)

	// Session commands
	case "export":
		return handleExportCommand(cmd, commands, formatter)
	case "import":
		return handleImportCommand(cmd, commands, formatter, rl)

	// Utility commands
	case "help":
		return handleHelpCommand(cmd)
	case "quit", "exit":
		return fmt.Errorf("exit")
	case "clear":
		fmt.Print("\033[2J\033[H") // Clear screen
		return nil

	default:
		formatter.PrintError(fmt.Sprintf("Unknown command: %s", cmd.Verb))
		formatter.PrintInfo("Type 'help' for available commands")
		return nil
	}
}

// Command handlers

func handleProcessCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter) error {
	// process is verb-only; everything after the verb is the prompt
	text := cmd.Rest
	if text == "" {
		formatter.PrintError("process requires prompt text")
		return nil
	}
	formatter.PrintOutput(commands.Process(text))
	return nil
}

func handleSetCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter, rl *readline.Instance) error {
	switch cmd.Object {
	case "input":
		// Everything after "set input", original case preserved
		text := strings.TrimSpace(strings.TrimPrefix(cmd.Rest, "input"))
		if text == "" {
			// Multiline mode: read until a lone "."
			lines, err := readMultiline(rl, formatter)
			if err != nil {
				return err
			}
			text = lines
		}
		commands.SetInputText(text)
		formatter.PrintSuccess("Input set")
		formatter.PrintOutput(commands.GetOutputText())
	case "strip":
		if len(cmd.Args) != 1 || (cmd.Args[0] != "on" && cmd.Args[0] != "off") {
			formatter.PrintError("usage: set strip on|off")
			return nil
		}
		commands.SetStripHTML(cmd.Args[0] == "on")
		formatter.PrintSuccess("HTML stripping " + cmd.Args[0])
	default:
		formatter.PrintError("usage: set input [text] | set strip on|off")
	}
	return nil
}

func handleStripCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter) error {
	text := cmd.Rest
	if text == "" {
		formatter.PrintError("strip requires text")
		return nil
	}
	formatter.PrintOutput(commands.StripHTML(text))
	return nil
}

func handleShowCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter) error {
	switch cmd.Object {
	case "input":
		fmt.Println(commands.GetInputText())
	case "output":
		formatter.PrintOutput(commands.GetOutputText())
	case "flags":
		flags := commands.GetActiveFlags()
		if len(flags) == 0 {
			formatter.PrintInfo("No active flags in the current input")
			return nil
		}
		cells := make([]string, len(flags))
		for i, n := range flags {
			cells[i] = strconv.Itoa(n)
		}
		formatter.PrintInfo("Active flags: " + strings.Join(cells, ", "))
	case "rules":
		formatter.PrintRules(commands.GetSuppressRules())
	case "stages", "trace":
		stages := commands.GetStageTrace()
		rows := make([][]string, len(stages))
		for i, stage := range stages {
			rows[i] = []string{stage.Name, shortenString(stage.Output, 60)}
		}
		formatter.PrintTable([]string{"Stage", "Output"}, rows)
	default:
		formatter.PrintError("usage: show input|output|flags|rules|stages")
	}
	return nil
}

func handleExportCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter) error {
	if cmd.Object != "session" && cmd.Object != "" {
		formatter.PrintError("usage: export session")
		return nil
	}
	jsonStr, err := commands.ExportSession()
	if err != nil {
		formatter.PrintError(err.Error())
		return nil
	}
	fmt.Println(jsonStr)
	return nil
}

func handleImportCommand(cmd *REPLCommand, commands PromptCleanCommands, formatter *REPLFormatter, rl *readline.Instance) error {
	if cmd.Object != "session" && cmd.Object != "" {
		formatter.PrintError("usage: import session")
		return nil
	}
	formatter.PrintInfo("Paste session JSON, finish with a single '.' line")
	jsonStr, err := readMultiline(rl, formatter)
	if err != nil {
		return err
	}
	if err := commands.ImportSession(jsonStr); err != nil {
		formatter.PrintError(err.Error())
		return nil
	}
	formatter.PrintSuccess("Session imported")
	formatter.PrintOutput(commands.GetOutputText())
	return nil
}

// readMultiline reads lines until a single "." line or EOF
func readMultiline(rl *readline.Instance, formatter *REPLFormatter) (string, error) {
	formatter.PrintInfo("Enter text, finish with a single '.' line")
	saved := rl.Config.Prompt
	rl.SetPrompt("... ")
	defer rl.SetPrompt(saved)

	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

func handleHelpCommand(cmd *REPLCommand) error {
	if cmd.Object != "" {
		printCommandHelp(cmd.Object)
		return nil
	}

	fmt.Println(`
Commands:

  process <text>          Run the bracket preprocessor over text one-shot
  set input [text]        Set the session prompt (no text: multiline mode)
  set strip on|off        Toggle HTML stripping of the input
  strip <text>            Strip HTML from text one-shot
  show input              Show the raw session prompt
  show output             Show the processed prompt
  show flags              Show the active flags collected from the input
  show rules              Show the extracted suppression rules
  show stages             Show the text after each pipeline stage
  export session          Print the session as JSON
  import session          Load a session from pasted JSON
  help [command]          Show help
  clear                   Clear the screen
  quit / exit             Leave the REPL

Bracket language quick reference:

  [1]                     activate flag 1 (global, position-independent)
  [1: brown hair]         kept only when flag 1 is active
  [-1: blonde hair]       kept only when flag 1 is NOT active
  ---tag  ---(a, b)       bypass a tag or a whole group
  ///start ... ///end     block comment
  a/@/b,c/@/              when tag a is present, drop tags b and c`)
	return nil
}

func printCommandHelp(command string) {
	helps := map[string]string{
		"process": `
process <text>
  Runs the full preprocessing pipeline over the given text and prints the
  result. The session input is not modified.

  Example:
    process [1] masterpiece, [1: brown hair], [-1: blonde hair]
`,
		"set": `
set input <text>
  Sets the session prompt. With no text, enters multiline mode: type the
  prompt across several lines and finish with a single "." line.

set strip on|off
  When on, HTML markup is stripped from the input before preprocessing.
  Useful for prompts pasted from web pages.
`,
		"show": `
show input              Show the raw session prompt
show output             Show the processed prompt
show flags              Show the active flag set
show rules              Show suppression rules as a tree
show stages             Show the output of every pipeline stage
`,
		"export": `
export session
  Prints the session (input text and options) as JSON. The processed
  output is not stored; it is recomputed on import.
`,
		"import": `
import session
  Reads session JSON (multiline, finish with ".") and replaces the
  current session with it.
`,
	}

	if help, ok := helps[command]; ok {
		fmt.Println(help)
	} else {
		fmt.Printf("No help available for '%s'\n", command)
		fmt.Println("Type 'help' for a list of all commands")
	}
}

// REPLSession manages the REPL interactive session
type REPLSession struct {
	commands  PromptCleanCommands
	client    *SocketClient
	formatter *REPLFormatter
	history   []string
}

// NewREPLSession creates a REPL over a socket connection
func NewREPLSession(socketPath string) (*REPLSession, error) {
	client, err := NewSocketClient(socketPath)
	if err != nil {
		return nil, err
	}

	return &REPLSession{
		commands:  NewSocketClientCommands(client),
		client:    client,
		formatter: NewREPLFormatter(true),
		history:   make([]string, 0),
	}, nil
}

// NewLocalREPLSession creates a REPL over an in-process core, no server needed
func NewLocalREPLSession(core *PromptCleanCore) *REPLSession {
	return &REPLSession{
		commands:  core,
		formatter: NewREPLFormatter(true),
		history:   make([]string, 0),
	}
}

// Run starts the interactive REPL loop
func (rs *REPLSession) Run() error {
	// Create readline instance
	rl, err := readline.New("promptclean> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	// Print banner
	color.Cyan("PromptClean REPL\n")
	if rs.client != nil {
		color.Cyan("Connected to socket server\n")
	}
	color.Cyan("Type 'help' for available commands\n\n")

	// Main REPL loop
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err != nil {
			if err.Error() == "EOF" {
				fmt.Println()
				break
			}
			rs.formatter.PrintError(err.Error())
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Store in history
		rs.history = append(rs.history, line)

		// Parse and execute command
		cmd, err := ParseCommand(line)
		if err != nil {
			rs.formatter.PrintError(err.Error())
			continue
		}

		if err := ExecuteREPLCommand(cmd, rs.commands, rs.formatter, rl); err != nil {
			if err.Error() == "exit" {
				break
			}
			rs.formatter.PrintError(err.Error())
		}
	}

	rs.formatter.PrintInfo("Goodbye!")
	if rs.client != nil {
		rs.client.Close()
	}
	return nil
}

// Helper functions

func shortenString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
