package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/huh"

	"github.com/hornet-api/hornet/pkg/collection"
	"github.com/hornet-api/hornet/pkg/history"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
)

// pane identifies which of the three panes has focus.
type pane int

const (
	paneSidebar pane = iota
	paneEditor
	paneResponse
)

// overlay is a full-screen mode layered over the panes.
type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayDiff
	overlayForm
)

// treeRow is one visible line of the sidebar tree, produced by
// flattening the collection tree against the expanded set.
type treeRow struct {
	id       collection.NodeID
	name     string
	kind     collection.Kind
	method   collection.Method
	depth    int
	expanded bool
	dirty    bool
}

// Model is the Bubble Tea model for the hornet TUI: a sidebar with the
// collection tree, a request editor, and a response viewport.
type Model struct {
	engine  *syncer.Engine
	exec    *runner.Runner
	histLog *history.Log // nil disables history recording

	focus   pane
	overlay overlay
	width   int
	height  int
	ready   bool

	// Sidebar
	rows     []treeRow
	cursor   int
	expanded map[collection.NodeID]bool

	// Editor
	selected  collection.NodeID // zero when nothing selected
	headerIdx int

	// Response
	respview viewport.Model
	renderer *glamour.TermRenderer

	// Execution
	executing bool
	spinner   spinner.Model
	lastErr   string
	flash     string

	// Forms (create/rename/edit/delete via huh)
	// formVals is a pointer so every copy of the model shares the
	// struct huh writes into.
	form     *huh.Form
	formDone func(Model) (Model, tea.Cmd)
	formVals *formValues

	// Diff overlay content
	diff string

	// Sync indicator animation (harmonica spring, pulses while
	// dirty or flushing)
	animSpring harmonica.Spring
	animPos    float64
	animVel    float64
	animTarget float64
}

// formValues backs the huh form inputs.
type formValues struct {
	name    string
	value   string
	url     string
	body    string
	schema  string
	confirm bool
}

// execDoneMsg carries the outcome of one request execution.
type execDoneMsg struct {
	id   collection.NodeID
	resp *collection.Response
	err  error
}

// suiteDoneMsg carries the outcome of a folder run.
type suiteDoneMsg struct {
	result *runner.SuiteResult
	err    error
}

// flushDoneMsg signals that a save finished.
type flushDoneMsg struct {
	err error
}

// animTickMsg drives the harmonica spring animation
type animTickMsg time.Time

// flashClearMsg removes a transient status message.
type flashClearMsg struct{}
