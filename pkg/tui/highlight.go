package tui

import (
	"encoding/json"
	"strings"
)

// highlightJSON pretty-prints a JSON response body and renders it as a
// highlighted code block through the model's glamour renderer. Non-JSON
// bodies come back unchanged.
func (m Model) highlightJSON(input string) string {
	var js interface{}
	if json.Unmarshal([]byte(input), &js) != nil {
		return input
	}

	pretty, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return input
	}

	if m.renderer == nil {
		return string(pretty)
	}
	var sb strings.Builder
	sb.WriteString("```json\n")
	sb.Write(pretty)
	sb.WriteString("\n```")

	out, err := m.renderer.Render(sb.String())
	if err != nil {
		return string(pretty)
	}
	return strings.TrimSpace(out)
}
