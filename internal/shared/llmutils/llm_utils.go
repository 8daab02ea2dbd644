// Package llmutils holds small text helpers shared by the agent loop, the
// tool backends and the report scheduler.
package llmutils

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kidslingo/kidslingo/internal/schema"
)

var (
	reThink     = regexp.MustCompile(`(?s)<think>.*?</think>`)
	reOpenThink = regexp.MustCompile(`(?s)<think>.*$`) // reasoning cut off by max tokens
)

// Truncate shortens s to at most n runes, adding "..." if it was truncated.
// Rune-based so Korean text is never split mid-character in logs.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// StripThink removes <think>…</think> blocks that some models embed, plus a
// trailing unterminated one, and trims the surrounding whitespace.
func StripThink(s string) string {
	s = reThink.ReplaceAllString(s, "")
	s = reOpenThink.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ToolHint renders tool calls for progress output, e.g.
// `index_video("https://youtu.be/x"), play_cheer`. The hint argument is the
// first string argument in key order, so the output is stable.
func ToolHint(tcs []schema.ToolCall) string {
	parts := make([]string, 0, len(tcs))
	for _, tc := range tcs {
		val := firstStringArg(tc.Arguments)
		if val == "" {
			parts = append(parts, tc.Name)
			continue
		}
		if utf8.RuneCountInString(val) > 40 {
			val = string([]rune(val)[:40]) + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%q)", tc.Name, val))
	}
	return strings.Join(parts, ", ")
}

func firstStringArg(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := args[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
