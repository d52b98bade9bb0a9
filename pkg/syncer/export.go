package syncer

import (
	"fmt"
	"os"

	"github.com/hornet-api/hornet/pkg/codec"
	"github.com/hornet-api/hornet/pkg/collection"
)

// Export writes the whole collection as a single YAML document, the
// portable form for sharing a collection as one file.
func (e *Engine) Export(path string) error {
	st := e.Store()
	data, err := codec.EncodeCollection(st.Info(), codec.SnapshotTree(st.Root()))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Import creates a new collection directory from a single-document
// export and returns its engine with everything already flushed.
func Import(dir string, data []byte) (*Engine, error) {
	info, nodes, err := codec.DecodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	if _, statErr := os.Stat(dir); statErr == nil {
		return nil, fmt.Errorf("import: %s already exists", dir)
	}

	st := collection.NewStore(info)
	if err := buildTree(st, st.Root().ID(), nodes); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	e := &Engine{dir: dir, store: st}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	return e, nil
}

func buildTree(st *collection.Store, parentID collection.NodeID, nodes []codec.ExportNode) error {
	for _, n := range nodes {
		id, err := st.CreateNode(parentID, n.Kind, n.Name)
		if err != nil {
			return err
		}
		if n.Kind == collection.KindDirectory {
			if err := buildTree(st, id, n.Children); err != nil {
				return err
			}
			continue
		}
		if err := st.SetRequest(id, n.Def); err != nil {
			return err
		}
	}
	return nil
}
