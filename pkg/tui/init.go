package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/history"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
)

// InitialModel builds the TUI model for one open collection. histLog
// may be nil when history recording is disabled.
func InitialModel(engine *syncer.Engine, exec *runner.Runner, histLog *history.Log) Model {
	m := Model{
		engine:     engine,
		exec:       exec,
		histLog:    histLog,
		focus:      paneSidebar,
		expanded:   map[collection.NodeID]bool{},
		respview:   viewport.New(40, 10),
		renderer:   newGlamourRenderer(80),
		spinner:    newSpinner(),
		animSpring: harmonica.NewSpring(harmonica.FPS(30), 6.0, 0.3),
	}
	m.rebuildTree()
	return m
}

// newSpinner creates the dots spinner used while a request is in
// flight.
func newSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{
			".       ",
			"..      ",
			"...     ",
			"....    ",
			".....   ",
			"......  ",
			"....... ",
			"........",
		},
		FPS: time.Second / 5,
	}
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)
	return sp
}

// newGlamourRenderer creates a glamour renderer for the help overlay
// and highlighted response bodies.
func newGlamourRenderer(wrap int) *glamour.TermRenderer {
	if wrap < 40 {
		wrap = 40
	}
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	return renderer
}

// rebuildTree flattens the collection tree into visible sidebar rows,
// honoring the expanded set. Called after every structural change.
func (m *Model) rebuildTree() {
	st := m.engine.Store()
	m.rows = m.rows[:0]
	m.appendRows(st.Root(), 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	// Drop the selection if the node vanished (deleted or discarded).
	if m.selected != 0 {
		if _, err := st.Find(m.selected); err != nil {
			m.selected = 0
		}
	}
}

func (m *Model) appendRows(dir *collection.Node, depth int) {
	st := m.engine.Store()
	for _, child := range dir.Children() {
		row := treeRow{
			id:    child.ID(),
			name:  child.Name(),
			kind:  child.Kind(),
			depth: depth,
			dirty: st.IsDirty(child.ID()),
		}
		if child.Kind() == collection.KindRequest {
			row.method = child.Request().Method
			m.rows = append(m.rows, row)
			continue
		}
		row.expanded = m.expanded[child.ID()]
		m.rows = append(m.rows, row)
		if row.expanded {
			m.appendRows(child, depth+1)
		}
	}
}

// currentRow returns the sidebar row under the cursor.
func (m Model) currentRow() (treeRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return treeRow{}, false
	}
	return m.rows[m.cursor], true
}

// selectedRequest returns the node backing the editor pane.
func (m Model) selectedRequest() *collection.Node {
	if m.selected == 0 {
		return nil
	}
	n, err := m.engine.Store().Find(m.selected)
	if err != nil || n.Kind() != collection.KindRequest {
		return nil
	}
	return n
}

// Init is called once when the program starts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.spinner.Tick,
		animTick(),
	)
}

func animTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}
