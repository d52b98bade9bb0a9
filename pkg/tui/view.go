package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
)

func sidebarWidth(total int) int {
	w := total / 4
	if w < 24 {
		w = 24
	}
	return w
}

func editorWidth(total int) int {
	w := total / 3
	if w < 30 {
		w = 30
	}
	return w
}

// View renders the entire TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.overlay {
	case overlayForm:
		if m.form != nil {
			return m.form.View()
		}
	case overlayHelp:
		return m.renderHelp()
	case overlayDiff:
		return m.renderDiff()
	}

	paneHeight := m.height - 4
	if paneHeight < 5 {
		paneHeight = 5
	}

	sidebar := m.framePane(paneSidebar, sidebarWidth(m.width), paneHeight, m.renderSidebar())
	editor := m.framePane(paneEditor, editorWidth(m.width), paneHeight, m.renderEditor())
	response := m.framePane(paneResponse, m.respview.Width, paneHeight, m.renderResponsePane())

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sidebar, editor, response))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) framePane(p pane, width, height int, content string) string {
	style := PaneStyle
	if m.focus == p {
		style = FocusedPaneStyle
	}
	return style.Width(width).Height(height).Render(content)
}

// renderSidebar draws the collection tree.
func (m Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render(m.engine.Store().Info().Name))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(FieldLabelStyle.Render("empty. press n to add a request"))
		return b.String()
	}

	for i, row := range m.rows {
		line := strings.Repeat("  ", row.depth)
		switch {
		case row.kind == collection.KindDirectory && row.expanded:
			line += TreeDirStyle.Render("▾ " + row.name)
		case row.kind == collection.KindDirectory:
			line += TreeDirStyle.Render("▸ " + row.name)
		default:
			badge := methodStyle(row.method.String()).Render(fmt.Sprintf("%-6s", row.method))
			line += badge + " " + TreeRequestStyle.Render(row.name)
		}
		if row.dirty {
			line += TreeDirtyStyle.Render(" •")
		}
		if i == m.cursor && m.focus == paneSidebar {
			line = TreeCursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderEditor draws the selected request's definition.
func (m Model) renderEditor() string {
	n := m.selectedRequest()
	if n == nil {
		return FieldLabelStyle.Render("select a request in the sidebar")
	}
	def := n.Request()

	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render(n.Name()))
	b.WriteString("\n\n")

	b.WriteString(methodStyle(def.Method.String()).Bold(true).Render(def.Method.String()))
	b.WriteString(" ")
	url := def.URL
	if url == "" {
		url = FieldLabelStyle.Render("(no url, press e)")
	} else {
		url = FieldValueStyle.Render(url)
	}
	b.WriteString(url)
	b.WriteString("\n\n")

	b.WriteString(FieldLabelStyle.Render("Headers"))
	b.WriteString("\n")
	if len(def.Headers) == 0 {
		b.WriteString(FieldLabelStyle.Render("  none. press H to add"))
		b.WriteString("\n")
	}
	for i, h := range def.Headers {
		cursor := "  "
		if i == m.headerIdx && m.focus == paneEditor {
			cursor = "> "
		}
		line := h.Name + ": " + h.Value
		if h.Enabled {
			b.WriteString(cursor + FieldValueStyle.Render(line))
		} else {
			b.WriteString(cursor + HeaderOffStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if def.Auth.Kind != collection.AuthNone {
		b.WriteString("\n")
		b.WriteString(FieldLabelStyle.Render("Auth: "))
		b.WriteString(FieldValueStyle.Render(def.Auth.Kind.String()))
		b.WriteString("\n")
	}

	if def.Method.AllowsBody() {
		b.WriteString("\n")
		b.WriteString(FieldLabelStyle.Render("Body"))
		b.WriteString("\n")
		if def.Body == "" {
			b.WriteString(FieldLabelStyle.Render("  empty"))
		} else {
			b.WriteString(FieldValueStyle.Render(truncate(def.Body, 600)))
		}
		b.WriteString("\n")
	} else if def.Body != "" {
		b.WriteString("\n")
		b.WriteString(FieldLabelStyle.Render(fmt.Sprintf("Body hidden: %s requests are sent without one", def.Method)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderResponsePane draws the response viewport with a status line.
func (m Model) renderResponsePane() string {
	var b strings.Builder
	if m.executing {
		b.WriteString(m.spinner.View() + " sending...")
		b.WriteString("\n")
		return b.String()
	}

	n := m.selectedRequest()
	if n == nil || n.LastResponse() == nil {
		return FieldLabelStyle.Render("no response yet. press enter to send")
	}
	b.WriteString(m.respview.View())
	return b.String()
}

// renderResponse formats a response for the viewport.
func (m Model) renderResponse(resp *collection.Response) string {
	var b strings.Builder

	status := StatusOkStyle
	if resp.StatusCode >= 400 {
		status = StatusErrStyle
	}
	b.WriteString(status.Render(resp.Status))
	b.WriteString(FieldLabelStyle.Render(fmt.Sprintf("  %dms  %dB", resp.Duration.Milliseconds(), resp.Size)))
	b.WriteString("\n\n")

	for _, h := range resp.Headers {
		b.WriteString(FieldLabelStyle.Render(h.Name + ": "))
		b.WriteString(FieldValueStyle.Render(h.Value))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.highlightJSON(resp.Body))
	return b.String()
}

// showSuiteResult summarizes a folder run in the response pane.
func (m Model) showSuiteResult(res *runner.SuiteResult) Model {
	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render("Folder run"))
	b.WriteString("\n\n")
	for _, o := range res.Outcomes {
		if o.Err != nil {
			b.WriteString(StatusErrStyle.Render("ERR "))
			b.WriteString(o.Path + ": " + o.Err.Error())
		} else {
			style := StatusOkStyle
			if o.Response.StatusCode >= 400 {
				style = StatusErrStyle
			}
			b.WriteString(style.Render(fmt.Sprintf("%d ", o.Response.StatusCode)))
			b.WriteString(fmt.Sprintf("%s  %dms", o.Path, o.Response.Duration.Milliseconds()))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(FieldLabelStyle.Render(fmt.Sprintf(
		"%d requests, %d failed, p50 %v, p99 %v",
		len(res.Outcomes), res.Failed(), res.LatencyP50, res.LatencyP99)))
	m.respview.SetContent(b.String())
	m.respview.GotoTop()
	return m
}

// renderFooter shows the sync state on the left and shortcuts on the
// right.
func (m Model) renderFooter() string {
	left := m.renderSyncIndicator()
	if m.lastErr != "" {
		left += "  " + ErrorStyle.Render(truncate(m.lastErr, m.width/2))
	} else if m.flash != "" {
		left += "  " + FooterStyle.Render(m.flash)
	}

	var parts []string
	parts = append(parts, ShortcutKeyStyle.Render("tab")+ShortcutDescStyle.Render(" pane"))
	parts = append(parts, ShortcutKeyStyle.Render("enter")+ShortcutDescStyle.Render(" send"))
	parts = append(parts, ShortcutKeyStyle.Render("ctrl+s")+ShortcutDescStyle.Render(" save"))
	parts = append(parts, ShortcutKeyStyle.Render("?")+ShortcutDescStyle.Render(" help"))
	right := strings.Join(parts, "   ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return FooterStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderSyncIndicator pulses while there is unsaved or in-flight work,
// driven by the harmonica spring.
func (m Model) renderSyncIndicator() string {
	dot := "●"
	if m.animPos > 0.5 {
		dot = "○"
	}
	switch m.engine.State() {
	case syncer.StateFlushing:
		return SyncFlushStyle.Render(dot + " saving")
	case syncer.StateDirty:
		return SyncDirtyStyle.Render(dot + " unsaved")
	default:
		return SyncCleanStyle.Render("● saved")
	}
}

// renderHelp draws the key reference through glamour.
func (m Model) renderHelp() string {
	const help = `# hornet

## Sidebar
| key | action |
|---|---|
| j/k | move |
| enter | open folder / select request |
| n / N | new request / new folder |
| r | rename |
| D | delete |
| R | run folder |
| u | discard unsaved changes |

## Editor
| key | action |
|---|---|
| m / M | cycle method |
| e | edit url, body, schema |
| H | add header |
| t / x | toggle / remove header |
| enter | send request |

## Everywhere
| key | action |
|---|---|
| tab | switch pane |
| ctrl+s | save |
| ctrl+d | diff unsaved changes |
| ctrl+y | copy url / response body |
| q, ctrl+c | quit (saves first) |

press any key to close`
	if m.renderer != nil {
		if out, err := m.renderer.Render(help); err == nil {
			return out
		}
	}
	return help
}

// renderDiff shows the unsaved-changes diff overlay.
func (m Model) renderDiff() string {
	var b strings.Builder
	b.WriteString(PaneTitleStyle.Render("Unsaved changes"))
	b.WriteString("\n\n")
	for _, line := range strings.Split(m.diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			b.WriteString(StatusOkStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(StatusErrStyle.Render(line))
		default:
			b.WriteString(FieldLabelStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(FieldLabelStyle.Render("press any key to close"))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
