package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hornet-api/hornet/pkg/collection"
)

// handleKeyMsg processes keyboard input. Overlay keys win, then global
// shortcuts, then whatever pane has focus.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay == overlayHelp || m.overlay == overlayDiff {
		m.overlay = overlayNone
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if msg.String() == "q" && m.focus != paneSidebar {
			break // q only quits from the sidebar; elsewhere it may be input
		}
		return m, tea.Quit

	case "tab":
		return m.handleFocusNext()

	case "shift+tab":
		return m.handleFocusPrev()

	case "ctrl+s":
		return m, m.flushCmd()

	case "ctrl+y":
		return m.handleCopy()

	case "ctrl+d":
		return m.handleShowDiff()

	case "?":
		m.overlay = overlayHelp
		return m, nil
	}

	switch m.focus {
	case paneSidebar:
		return m.handleSidebarKey(msg)
	case paneEditor:
		return m.handleEditorKey(msg)
	default:
		return m.handleResponseKey(msg)
	}
}

// handleFocusNext cycles sidebar -> editor -> response. Leaving a dirty
// request forces a flush first.
func (m Model) handleFocusNext() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == paneEditor && m.selected != 0 && m.engine.Store().IsDirty(m.selected) {
		cmd = m.navigateAwayCmd(m.selected)
	}
	m.focus = (m.focus + 1) % 3
	return m, cmd
}

func (m Model) handleFocusPrev() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == paneEditor && m.selected != 0 && m.engine.Store().IsDirty(m.selected) {
		cmd = m.navigateAwayCmd(m.selected)
	}
	m.focus = (m.focus + 2) % 3
	return m, cmd
}

// handleSidebarKey drives the collection tree.
func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case "enter", " ":
		return m.handleSelect()

	case "n":
		return m.openCreateForm(collection.KindRequest)

	case "N":
		return m.openCreateForm(collection.KindDirectory)

	case "r":
		return m.openRenameForm()

	case "D":
		return m.openDeleteForm()

	case "R":
		row, ok := m.currentRow()
		if !ok || row.kind != collection.KindDirectory || m.executing {
			return m, nil
		}
		m.executing = true
		return m, tea.Batch(m.spinner.Tick, m.runFolderCmd(row.id))

	case "u":
		return m.handleDiscard()
	}
	return m, nil
}

// handleSelect expands a directory or selects a request for editing.
// Selecting away from a dirty request flushes it first.
func (m Model) handleSelect() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}

	if row.kind == collection.KindDirectory {
		m.expanded[row.id] = !m.expanded[row.id]
		m.rebuildTree()
		return m, nil
	}

	var cmd tea.Cmd
	if m.selected != 0 && m.selected != row.id && m.engine.Store().IsDirty(m.selected) {
		cmd = m.navigateAwayCmd(m.selected)
	}
	m.selected = row.id
	m.headerIdx = 0
	if n := m.selectedRequest(); n != nil && n.LastResponse() != nil {
		m.respview.SetContent(m.renderResponse(n.LastResponse()))
		m.respview.GotoTop()
	}
	return m, cmd
}

// handleDiscard drops unflushed changes and reloads from disk.
func (m Model) handleDiscard() (tea.Model, tea.Cmd) {
	if !m.engine.Store().AnyDirty() {
		return m, nil
	}
	if err := m.engine.Discard(); err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	m.selected = 0
	m.rebuildTree()
	m.flash = "changes discarded"
	return m, flashCmd()
}

// handleEditorKey drives the request editor.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.selectedRequest()
	if n == nil {
		return m, nil
	}
	st := m.engine.Store()

	switch msg.String() {
	case "m":
		if err := st.SetMethod(m.selected, n.Request().Method.Next()); err == nil {
			m.rebuildTree()
		}
		return m, nil

	case "M":
		if err := st.SetMethod(m.selected, n.Request().Method.Prev()); err == nil {
			m.rebuildTree()
		}
		return m, nil

	case "e":
		return m.openEditForm()

	case "H":
		return m.openHeaderForm()

	case "up", "k":
		if m.headerIdx > 0 {
			m.headerIdx--
		}
		return m, nil

	case "down", "j":
		if m.headerIdx < len(n.Request().Headers)-1 {
			m.headerIdx++
		}
		return m, nil

	case "t":
		if err := st.ToggleHeader(m.selected, m.headerIdx); err == nil {
			m.rebuildTree()
		}
		return m, nil

	case "x":
		if err := st.RemoveHeader(m.selected, m.headerIdx); err == nil {
			if m.headerIdx > 0 {
				m.headerIdx--
			}
			m.rebuildTree()
		}
		return m, nil

	case "enter":
		if m.executing {
			return m, nil
		}
		m.executing = true
		return m, tea.Batch(m.spinner.Tick, m.execCmd(m.selected))
	}
	return m, nil
}

// handleResponseKey scrolls the response viewport; enter re-runs the
// selected request.
func (m Model) handleResponseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" && m.selected != 0 && !m.executing {
		m.executing = true
		return m, tea.Batch(m.spinner.Tick, m.execCmd(m.selected))
	}
	var cmd tea.Cmd
	m.respview, cmd = m.respview.Update(msg)
	return m, cmd
}

// handleCopy puts the response body (or the request url when there is
// no response yet) on the system clipboard.
func (m Model) handleCopy() (tea.Model, tea.Cmd) {
	n := m.selectedRequest()
	if n == nil {
		return m, nil
	}
	text := n.Request().URL
	if resp := n.LastResponse(); resp != nil && m.focus == paneResponse {
		text = resp.Body
	}
	if text == "" {
		return m, nil
	}
	if err := clipboard.WriteAll(text); err == nil {
		m.flash = "copied"
		return m, flashCmd()
	}
	return m, nil
}

// handleShowDiff opens the unsaved-changes diff for the selection.
func (m Model) handleShowDiff() (tea.Model, tea.Cmd) {
	if m.selected == 0 {
		return m, nil
	}
	diff, err := m.unsavedDiff(m.selected)
	if err != nil {
		m.lastErr = err.Error()
		return m, nil
	}
	if diff == "" {
		m.flash = "no unsaved changes"
		return m, flashCmd()
	}
	m.diff = diff
	m.overlay = overlayDiff
	return m, nil
}
