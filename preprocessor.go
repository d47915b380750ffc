package main

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The conditional bracket language understood by the preprocessor:
//
//   [N]                  flag token, activates flag N for the whole prompt
//   [K: content]         conditional block; kept if K active (K>0) or
//                        |K| inactive (K<0); [0: ...] is never kept
//   [-N]                 bare negative token, noise, removed
//   ---tag               tag bypass, removes up to the next comma
//   ---(...) ---[...]    tag bypass with grouping, removes the balanced group
//   ///start ... ///end  block comment, removed including the markers
//   a/@/b,c/@/           suppression rule: when tag a is present,
//                        tags b and c are dropped from the prompt
//
// Flags are global: a [1] anywhere in the text activates flag 1 for every
// [1: ...] and [-1: ...] block regardless of position.

// SuppressRule maps a trigger tag to the tags it suppresses. Rules keep
// their insertion order; a trigger that appears twice accumulates targets.
type SuppressRule struct {
	Trigger string   `json:"trigger"`
	Targets []string `json:"targets"`
}

// StageResult is a snapshot of the text after one preprocessing stage.
type StageResult struct {
	Name   string `json:"name"`
	Output string `json:"output"`
}

// PreprocessResult carries the processed text together with everything the
// pipeline learned along the way, for display in the UI and REPL.
type PreprocessResult struct {
	Output      string         `json:"output"`
	ActiveFlags []int          `json:"active_flags"`
	Rules       []SuppressRule `json:"rules"`
	Stages      []StageResult  `json:"stages"`
}

var (
	reBlockComment = regexp.MustCompile(`(?s)///start.*?///end`)
	reFlagToken    = regexp.MustCompile(`\[(\d+)\]`)
	reInvalidNeg   = regexp.MustCompile(`\[-\d+\]`)
	reCondOpen     = regexp.MustCompile(`^\[([+-]?\d+):\s*`)
	reSuppressRule = regexp.MustCompile(`(?:^|,\s*)([^,/@]+)/@/([^/@]+)/@/`)
	reSuppressMark = regexp.MustCompile(`/@/[^/@]+/@/`)

	reMultiSpace   = regexp.MustCompile(`  +`)
	reSpaceComma   = regexp.MustCompile(`\s+,`)
	reMultiComma   = regexp.MustCompile(`,(\s*,)+`)
	reLeadingComma = regexp.MustCompile(`^\s*,\s*`)
)

// Preprocess runs the full bracket-language pipeline over a prompt and
// returns the processed text. It never fails: malformed input degrades to
// documented salvage behavior instead of an error.
func Preprocess(text string) string {
	return PreprocessTrace(text).Output
}

// PreprocessTrace runs the same pipeline as Preprocess but records the
// intermediate text after every stage, the collected flag set, and the
// extracted suppression rules.
//
// Stage order is a contract, not an accident. Suppression rules may be
// written inside a conditional block and must only take effect when that
// block survives evaluation, so rule extraction runs after conditional
// evaluation; flags must be collected before any conditional is resolved.
func PreprocessTrace(text string) *PreprocessResult {
	res := &PreprocessResult{}
	record := func(name string) {
		res.Stages = append(res.Stages, StageResult{Name: name, Output: text})
	}

	text = processTagBypass(text)
	record("tag bypass")

	text = reBlockComment.ReplaceAllString(text, "")
	record("block comments")

	flags := collectFlags(text)
	text = reFlagToken.ReplaceAllString(text, "")
	record("flag tokens")

	text = reInvalidNeg.ReplaceAllString(text, "")
	record("invalid negatives")

	text = evaluateConditionals(text, flags)
	record("conditional blocks")

	rules, text := extractSuppressRules(text)
	text = applySuppressRules(text, rules)
	record("suppression")

	text = normalize(text)
	record("normalize")

	res.Output = text
	res.ActiveFlags = sortedFlags(flags)
	res.Rules = rules
	return res
}

// StageNames lists the pipeline stages in execution order.
func StageNames() []string {
	return []string{
		"tag bypass",
		"block comments",
		"flag tokens",
		"invalid negatives",
		"conditional blocks",
		"suppression",
		"normalize",
	}
}

var bracketPairs = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// processTagBypass removes tags prefixed with --- from the text.
//
//	---tag          removes up to and including the next comma
//	---(a, b)       removes the whole balanced group, any bracket kind
//
// An unbalanced group removes everything to the end of the string. Trailing
// separators left behind by a removal are consumed so no orphan comma
// remains. Bypass markers inside a removed group are dropped with it.
func processTagBypass(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		if !strings.HasPrefix(text[i:], "---") {
			b.WriteByte(text[i])
			i++
			continue
		}
		i += 3

		if i < len(text) {
			if close, ok := bracketPairs[text[i]]; ok {
				end := findMatchingBracket(text, i+1, text[i], close)
				if end == -1 {
					// unbalanced group: drop the rest of the string
					break
				}
				i = end + 1
				for i < len(text) && (text[i] == ',' || text[i] == ' ' || text[i] == '\t') {
					i++
				}
				continue
			}
		}

		// bare form: remove until the next comma
		for i < len(text) && text[i] != ',' {
			i++
		}
		if i < len(text) && text[i] == ',' {
			i++
		}
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
	}
	return b.String()
}

// bracketFrame is one level of the iterative bracket scanner: the closer we
// are looking for, the current scan position, the nesting depth of that
// bracket kind, and where the scan started (the resume point if the group
// turns out to be unbalanced).
type bracketFrame struct {
	open  byte
	close byte
	pos   int
	start int
	depth int
}

// findMatchingBracket returns the index of the closing bracket that matches
// the opener preceding start, or -1 if the text ends first. Nested brackets
// of the same kind are counted; a different bracket kind is opaque: its own
// matching closer is located and the span is skipped whole, so a ']' inside
// a parenthesized group never terminates an enclosing '[' scan.
//
// The scanner keeps an explicit frame stack instead of recursing, so
// adversarial input (thousands of dangling openers) costs heap, not goroutine
// stack. When a foreign group is unbalanced the enclosing scan resumes just
// after the foreign opener, treating it as an ordinary character.
func findMatchingBracket(text string, start int, open, close byte) int {
	stack := []bracketFrame{{open: open, close: close, pos: start, start: start, depth: 1}}

	for {
		top := &stack[len(stack)-1]

		if top.pos >= len(text) {
			if len(stack) == 1 {
				return -1
			}
			resume := top.start
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].pos = resume
			continue
		}

		ch := text[top.pos]
		switch {
		case ch == top.close:
			top.depth--
			if top.depth == 0 {
				matched := top.pos
				if len(stack) == 1 {
					return matched
				}
				stack = stack[:len(stack)-1]
				stack[len(stack)-1].pos = matched + 1
				continue
			}
			top.pos++
		case ch == top.open:
			top.depth++
			top.pos++
		default:
			if inner, ok := bracketPairs[ch]; ok {
				stack = append(stack, bracketFrame{
					open:  ch,
					close: inner,
					pos:   top.pos + 1,
					start: top.pos + 1,
					depth: 1,
				})
				continue
			}
			top.pos++
		}
	}
}

// collectFlags scans for [N] tokens and returns the set of active flags.
// Flags are collected before any conditional is evaluated, which is what
// makes them position-independent.
func collectFlags(text string) map[int]bool {
	flags := make(map[int]bool)
	for _, m := range reFlagToken.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			flags[n] = true
		}
	}
	return flags
}

// evaluateConditionals resolves every [K: content] block at the current
// bracket depth against the flag set. Content of a kept block is evaluated
// recursively, so nesting depth bounds the recursion. An opener with no
// matching closer is preserved as a literal '[' and scanning continues,
// rather than failing.
func evaluateConditionals(text string, flags map[int]bool) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		if text[i] != '[' {
			b.WriteByte(text[i])
			i++
			continue
		}

		m := reCondOpen.FindStringSubmatch(text[i:])
		if m == nil {
			b.WriteByte(text[i])
			i++
			continue
		}

		contentStart := i + len(m[0])
		end := findMatchingBracket(text, contentStart, '[', ']')
		if end == -1 {
			// malformed block: keep the bracket, keep going
			b.WriteByte(text[i])
			i++
			continue
		}

		k, _ := strconv.Atoi(m[1])
		content := text[contentStart:end]
		switch {
		case k > 0 && flags[k]:
			b.WriteString(evaluateConditionals(content, flags))
		case k < 0 && !flags[-k]:
			b.WriteString(evaluateConditionals(content, flags))
		}
		// k == 0 is always dropped

		i = end + 1
	}
	return b.String()
}

// extractSuppressRules pulls trigger/@/targets/@/ markers out of the text.
// The marker span is stripped but the trigger tag itself stays in place.
// Triggers and targets are lowercased and trimmed; a repeated trigger
// appends to its existing target list.
func extractSuppressRules(text string) ([]SuppressRule, string) {
	var rules []SuppressRule
	index := make(map[string]int)

	for _, m := range reSuppressRule.FindAllStringSubmatch(text, -1) {
		trigger := strings.ToLower(strings.TrimSpace(m[1]))
		var targets []string
		for _, t := range strings.Split(m[2], ",") {
			targets = append(targets, strings.ToLower(strings.TrimSpace(t)))
		}
		if at, ok := index[trigger]; ok {
			rules[at].Targets = append(rules[at].Targets, targets...)
		} else {
			index[trigger] = len(rules)
			rules = append(rules, SuppressRule{Trigger: trigger, Targets: targets})
		}
	}

	return rules, reSuppressMark.ReplaceAllString(text, "")
}

// applySuppressRules drops every tag that is a target of a trigger present
// in the text. Matching is case-insensitive; surviving tags keep their
// original case and are rejoined with ", ".
func applySuppressRules(text string, rules []SuppressRule) string {
	if len(rules) == 0 {
		return text
	}

	parts := strings.Split(text, ",")
	tags := make([]string, len(parts))
	lower := make([]string, len(parts))
	for i, p := range parts {
		tags[i] = strings.TrimSpace(p)
		lower[i] = strings.ToLower(tags[i])
	}

	present := make(map[string]bool, len(lower))
	for _, t := range lower {
		present[t] = true
	}

	suppress := make(map[string]bool)
	for _, rule := range rules {
		if present[rule.Trigger] {
			for _, target := range rule.Targets {
				suppress[target] = true
			}
		}
	}

	kept := make([]string, 0, len(tags))
	for i, tag := range tags {
		if !suppress[lower[i]] {
			kept = append(kept, tag)
		}
	}
	return strings.Join(kept, ", ")
}

// normalize cleans up the whitespace and punctuation debris left behind by
// the removal stages. Running it twice is a no-op.
func normalize(text string) string {
	text = reMultiSpace.ReplaceAllString(text, " ")
	text = reSpaceComma.ReplaceAllString(text, ",")
	text = reMultiComma.ReplaceAllString(text, ",")
	text = reLeadingComma.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func sortedFlags(flags map[int]bool) []int {
	out := make([]int, 0, len(flags))
	for n := range flags {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
