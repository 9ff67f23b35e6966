package agent

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

var (
	// jsonObjectRe matches brace-balanced substrings with one level of
	// nesting.
	jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	codeBlockRe  = regexp.MustCompile("(?si)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	fenceOpenRe     = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe    = regexp.MustCompile("\\s*```$")
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

	thoughtFieldRe = regexp.MustCompile(`"thought":\s*"([^"]*)"`)
	toolFieldRe    = regexp.MustCompile(`"tool":\s*"([^"]*)"`)
	argsFieldRe    = regexp.MustCompile(`"args":\s*(\{[^}]*\})`)
)

// ParseResponse extracts an Action from raw model output. It tries brace
// -matched substrings, fenced code blocks, then the whole text, pre-cleaning
// each candidate before decoding; if structural decoding fails everywhere it
// falls back to regex field reconstruction. The function is total: it never
// panics, and a nil Action always comes with a non-empty error list.
func ParseResponse(raw string) (*Action, []string) {
	var errs []string

	if strings.TrimSpace(raw) == "" {
		return nil, []string{"Empty response from model"}
	}

	var candidates []string
	candidates = append(candidates, jsonObjectRe.FindAllString(raw, -1)...)
	for _, m := range codeBlockRe.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	if trimmed := strings.TrimSpace(raw); strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		candidates = append(candidates, trimmed)
	}

	for _, candidate := range candidates {
		cleaned := cleanJSONCandidate(candidate)

		var decoded map[string]any
		if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
			snippet := candidate
			if len(snippet) > 50 {
				snippet = snippet[:50]
			}
			errs = append(errs, fmt.Sprintf("JSON decode error in '%s...': %v", snippet, err))
			continue
		}
		if action, ok := actionFromMap(decoded); ok {
			return action, nil
		}
		errs = append(errs, fmt.Sprintf("Invalid response structure: %v", decoded))
	}

	// Structural decoding gave nothing; reconstruct from raw fields.
	thoughtMatch := thoughtFieldRe.FindStringSubmatch(raw)
	toolMatch := toolFieldRe.FindStringSubmatch(raw)
	if thoughtMatch != nil && toolMatch != nil {
		action := &Action{
			Thought: thoughtMatch[1],
			Tool:    toolMatch[1],
			Args:    map[string]any{},
		}
		if argsMatch := argsFieldRe.FindStringSubmatch(raw); argsMatch != nil {
			var args map[string]any
			if err := json.Unmarshal([]byte(argsMatch[1]), &args); err == nil {
				action.Args = args
			}
		}
		return action, []string{"Reconstructed from partial parse"}
	}

	echo := raw
	if r := []rune(echo); len(r) > 200 {
		echo = string(r[:200])
	}
	errs = append(errs, fmt.Sprintf("Could not parse any valid JSON from response: %s...", echo))
	return nil, errs
}

func cleanJSONCandidate(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// actionFromMap accepts only objects with string thought and tool, and, when
// present, an object-typed args.
func actionFromMap(m map[string]any) (*Action, bool) {
	thought, ok := m["thought"].(string)
	if !ok {
		return nil, false
	}
	tool, ok := m["tool"].(string)
	if !ok {
		return nil, false
	}

	args := map[string]any{}
	if raw, present := m["args"]; present && raw != nil {
		typed, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		args = typed
	}
	return &Action{Thought: thought, Tool: tool, Args: args}, true
}
