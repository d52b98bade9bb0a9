package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/hornet-api/hornet/pkg/collection"
)

// openCreateForm prompts for a name and creates a node under the
// directory at the cursor (or as its sibling when a request is
// selected).
func (m Model) openCreateForm(kind collection.Kind) (tea.Model, tea.Cmd) {
	parent := m.creationParent()
	title := "New request"
	if kind == collection.KindDirectory {
		title = "New folder"
	}

	m.formVals = &formValues{}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Placeholder("name").
			Value(&m.formVals.name).
			Validate(nonEmpty),
	))
	m.formDone = func(next Model) (Model, tea.Cmd) {
		st := next.engine.Store()
		id, err := st.CreateNode(parent, kind, strings.TrimSpace(next.formVals.name))
		if err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		next.lastErr = ""
		next.expanded[parent] = true
		if kind == collection.KindRequest {
			next.selected = id
		}
		next.rebuildTree()
		next.moveCursorTo(id)
		return next, nil
	}
	m.overlay = overlayForm
	return m, m.form.Init()
}

// creationParent picks where a new node goes: the directory under the
// cursor, or the parent of the request under the cursor, or the root.
func (m Model) creationParent() collection.NodeID {
	st := m.engine.Store()
	row, ok := m.currentRow()
	if !ok {
		return st.Root().ID()
	}
	if row.kind == collection.KindDirectory {
		return row.id
	}
	n, err := st.Find(row.id)
	if err != nil || n.Parent() == nil {
		return st.Root().ID()
	}
	return n.Parent().ID()
}

// openRenameForm renames the node at the cursor.
func (m Model) openRenameForm() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}

	m.formVals = &formValues{name: row.name}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Rename " + row.name).
			Value(&m.formVals.name).
			Validate(nonEmpty),
	))
	id := row.id
	m.formDone = func(next Model) (Model, tea.Cmd) {
		if err := next.engine.Store().RenameNode(id, strings.TrimSpace(next.formVals.name)); err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		next.lastErr = ""
		next.rebuildTree()
		return next, nil
	}
	m.overlay = overlayForm
	return m, m.form.Init()
}

// openDeleteForm confirms before deleting the node at the cursor.
func (m Model) openDeleteForm() (tea.Model, tea.Cmd) {
	row, ok := m.currentRow()
	if !ok {
		return m, nil
	}

	prompt := "Delete request " + row.name + "?"
	if row.kind == collection.KindDirectory {
		prompt = "Delete folder " + row.name + " and everything under it?"
	}
	m.formVals = &formValues{}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Delete").
			Negative("Keep").
			Value(&m.formVals.confirm),
	))
	id := row.id
	m.formDone = func(next Model) (Model, tea.Cmd) {
		if !next.formVals.confirm {
			return next, nil
		}
		if err := next.engine.Store().DeleteNode(id); err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		next.lastErr = ""
		if next.selected == id {
			next.selected = 0
		}
		next.rebuildTree()
		return next, nil
	}
	m.overlay = overlayForm
	return m, m.form.Init()
}

// openEditForm edits the selected request's url, body and body schema.
func (m Model) openEditForm() (tea.Model, tea.Cmd) {
	n := m.selectedRequest()
	if n == nil {
		return m, nil
	}
	def := n.Request()

	m.formVals = &formValues{url: def.URL, body: def.Body, schema: def.BodySchema}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("URL").
			Placeholder("https://api.example.com/path").
			Value(&m.formVals.url),
		huh.NewText().
			Title("Body").
			Value(&m.formVals.body),
		huh.NewText().
			Title("Body schema (JSON Schema, optional)").
			Value(&m.formVals.schema),
	))
	id := m.selected
	m.formDone = func(next Model) (Model, tea.Cmd) {
		st := next.engine.Store()
		if err := st.SetURL(id, strings.TrimSpace(next.formVals.url)); err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		if err := st.SetBody(id, next.formVals.body); err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		if err := st.SetBodySchema(id, strings.TrimSpace(next.formVals.schema)); err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		next.lastErr = ""
		next.rebuildTree()
		return next, nil
	}
	m.overlay = overlayForm
	return m, m.form.Init()
}

// openHeaderForm appends a header to the selected request.
func (m Model) openHeaderForm() (tea.Model, tea.Cmd) {
	if m.selectedRequest() == nil {
		return m, nil
	}

	m.formVals = &formValues{}
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Header name").
			Placeholder("Content-Type").
			Value(&m.formVals.name).
			Validate(nonEmpty),
		huh.NewInput().
			Title("Header value").
			Value(&m.formVals.value),
	))
	id := m.selected
	m.formDone = func(next Model) (Model, tea.Cmd) {
		st := next.engine.Store()
		err := st.AddHeader(id, strings.TrimSpace(next.formVals.name), next.formVals.value)
		if err != nil {
			next.lastErr = err.Error()
			return next, nil
		}
		next.lastErr = ""
		next.rebuildTree()
		return next, nil
	}
	m.overlay = overlayForm
	return m, m.form.Init()
}

// moveCursorTo puts the sidebar cursor on the given node if visible.
func (m *Model) moveCursorTo(id collection.NodeID) {
	for i, row := range m.rows {
		if row.id == id {
			m.cursor = i
			return
		}
	}
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name cannot be empty")
	}
	return nil
}
