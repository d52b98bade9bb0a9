package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/hornet-api/hornet/pkg/codec"
	"github.com/hornet-api/hornet/pkg/collection"
)

// unsavedDiff renders a unified diff between the persisted form of a
// request and what is currently in memory. Returns "" when they match.
func (m Model) unsavedDiff(id collection.NodeID) (string, error) {
	st := m.engine.Store()
	n, err := st.Find(id)
	if err != nil {
		return "", err
	}
	if n.Kind() != collection.KindRequest {
		return "", collection.ErrNotRequest
	}

	current, err := codec.EncodeRequest(n.Request())
	if err != nil {
		return "", err
	}

	names, err := st.PathOf(id)
	if err != nil {
		return "", err
	}
	rel := filepath.Join(names...) + ".yaml"
	saved, err := os.ReadFile(filepath.Join(m.engine.Dir(), rel))
	if os.IsNotExist(err) {
		saved = nil // new request, everything is an addition
	} else if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}

	if string(saved) == string(current) {
		return "", nil
	}
	edits := udiff.Strings(string(saved), string(current))
	unified, err := udiff.ToUnified("saved/"+rel, "unsaved/"+rel, string(saved), edits, 3)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	return strings.TrimRight(unified, "\n"), nil
}
