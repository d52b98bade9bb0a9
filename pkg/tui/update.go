package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/history"
	"github.com/hornet-api/hornet/pkg/runner"
)

// Update handles all messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.overlay == overlayForm && m.form != nil {
			return m.updateForm(msg)
		}
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m = m.handleWindowResize(msg)

	case execDoneMsg:
		m = m.handleExecDone(msg)

	case suiteDoneMsg:
		m.executing = false
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m = m.showSuiteResult(msg.result)
		}
		m.rebuildTree()

	case flushDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}
		m.rebuildTree()

	case animTickMsg:
		m = m.stepAnimation()
		cmds = append(cmds, animTick())

	case flashClearMsg:
		m.flash = ""

	case spinner.TickMsg:
		if m.executing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.focus == paneResponse {
		var cmd tea.Cmd
		m.respview, cmd = m.respview.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// updateForm routes input to the active huh form and fires its
// completion handler when it finishes.
func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		done := m.formDone
		m.form = nil
		m.formDone = nil
		m.overlay = overlayNone
		if done != nil {
			next, doneCmd := done(m)
			return next, tea.Batch(cmd, doneCmd)
		}
		return m, cmd
	case huh.StateAborted:
		m.form = nil
		m.formDone = nil
		m.overlay = overlayNone
	}
	return m, cmd
}

// handleWindowResize adjusts the pane layout.
func (m Model) handleWindowResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	respWidth := m.width - sidebarWidth(m.width) - editorWidth(m.width) - 8
	if respWidth < 20 {
		respWidth = 20
	}
	paneHeight := m.height - 4
	if paneHeight < 5 {
		paneHeight = 5
	}
	m.respview.Width = respWidth
	m.respview.Height = paneHeight
	m.renderer = newGlamourRenderer(respWidth)
	return m
}

// handleExecDone lands a finished request execution.
func (m Model) handleExecDone(msg execDoneMsg) Model {
	m.executing = false
	if msg.err != nil {
		m.lastErr = msg.err.Error()
		return m
	}
	m.lastErr = ""

	// The node may have been deleted while the request was in flight.
	_ = m.engine.Store().AttachResponse(msg.id, msg.resp)
	if m.selected == msg.id {
		m.respview.SetContent(m.renderResponse(msg.resp))
		m.respview.GotoTop()
	}
	return m
}

// stepAnimation advances the sync indicator spring. The target pulses
// while the collection has unsaved or in-flight work and settles at
// zero when clean.
func (m Model) stepAnimation() Model {
	if m.engine.Store().AnyDirty() || m.executing {
		// Oscillate: retarget to the opposite pole when the spring
		// gets close, producing a steady pulse.
		if m.animTarget == 1 && m.animPos > 0.95 {
			m.animTarget = 0
		}
		if m.animTarget == 0 && m.animPos < 0.05 {
			m.animTarget = 1
		}
	} else {
		m.animTarget = 0
	}
	m.animPos, m.animVel = m.animSpring.Update(m.animPos, m.animVel, m.animTarget)
	return m
}

// flushCmd saves dirty nodes in the background.
func (m Model) flushCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return flushDoneMsg{err: engine.Flush()}
	}
}

// navigateAwayCmd force-flushes before focus leaves a dirty request.
func (m Model) navigateAwayCmd(id collection.NodeID) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		return flushDoneMsg{err: engine.NavigateAway(id)}
	}
}

// execCmd runs the selected request off the UI thread and records the
// outcome in the history log.
func (m Model) execCmd(id collection.NodeID) tea.Cmd {
	st := m.engine.Store()
	n, err := st.Find(id)
	if err != nil || n.Kind() != collection.KindRequest {
		return nil
	}
	def := n.Request()
	names, _ := st.PathOf(id)
	path := strings.Join(names, "/")
	// The directory base name, not Info().Name: `hornet history` keys by
	// the same thing and renaming the collection must not split the log.
	collectionName := history.CollectionKey(m.engine.Dir())
	exec := m.exec
	histLog := m.histLog

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		resp, err := exec.Execute(ctx, def)
		if err == nil && histLog != nil {
			_ = histLog.Append(ctx, history.Entry{
				Collection:  collectionName,
				RequestPath: path,
				Method:      def.Method.String(),
				URL:         def.URL,
				StatusCode:  resp.StatusCode,
				Size:        resp.Size,
				Duration:    resp.Duration,
			})
		}
		return execDoneMsg{id: id, resp: resp, err: err}
	}
}

// runFolderCmd executes every request under a directory.
func (m Model) runFolderCmd(id collection.NodeID) tea.Cmd {
	st := m.engine.Store()
	exec := m.exec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		result, err := exec.RunDirectory(ctx, st, id, runner.SuiteOptions{RequestsPerSecond: 10})
		return suiteDoneMsg{result: result, err: err}
	}
}

// flashCmd shows a transient status message.
func flashCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return flashClearMsg{}
	})
}
