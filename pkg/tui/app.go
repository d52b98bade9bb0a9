// Package tui provides the terminal user interface for hornet: a
// three-pane layout with the collection tree on the left, the request
// editor in the middle, and the response viewer on the right.
//
// File organization:
// - app.go: Entry point (Run function)
// - model.go: Model struct and message types
// - init.go: Model construction and sidebar tree flattening
// - update.go: Event handling and state updates
// - view.go: Rendering and display logic
// - keys.go: Keyboard input handling
// - forms.go: huh forms for create/rename/edit/delete
// - diff.go: unsaved-changes diff
// - styles.go: Visual styling (colors, borders, etc.)
// - highlight.go: JSON syntax highlighting
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hornet-api/hornet/pkg/history"
	"github.com/hornet-api/hornet/pkg/runner"
	"github.com/hornet-api/hornet/pkg/syncer"
)

// Run starts the TUI for one open collection and blocks until the user
// quits. Outstanding edits are flushed on the way out.
func Run(engine *syncer.Engine, exec *runner.Runner, histLog *history.Log) error {
	m := InitialModel(engine, exec, histLog)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err := prog.Run()
	if closeErr := engine.Close(); err == nil {
		err = closeErr
	}
	return err
}
