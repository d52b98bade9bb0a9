package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hornet-api/hornet/pkg/codec"
	"github.com/hornet-api/hornet/pkg/collection"
)

// loadStore reconstructs a collection from its directory. The tree is
// built through the store's own mutation API and then declared clean,
// so dirty tracking starts from a blank slate. Node ids are freshly
// assigned on every load; they are deliberately not persisted.
func loadStore(dir string) (*collection.Store, error) {
	info := collection.Info{Name: filepath.Base(dir)}

	data, err := os.ReadFile(filepath.Join(dir, codec.ManifestName))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	var rootManifest codec.Manifest
	if err == nil {
		rootManifest, err = codec.DecodeManifest(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", codec.ManifestName, err)
		}
		if rootManifest.Name != "" {
			info.Name = rootManifest.Name
		}
		info.Description = rootManifest.Description
	}

	st := collection.NewStore(info)
	if err := loadDir(st, st.Root().ID(), dir, rootManifest.Order); err != nil {
		return nil, err
	}
	st.ResetClean()
	return st, nil
}

// loadDir populates parentID with the entries found under absDir,
// ordered by the directory's manifest; entries the manifest does not
// know about are appended in directory-listing order.
func loadDir(st *collection.Store, parentID collection.NodeID, absDir string, order []string) error {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("load %s: %w", absDir, err)
	}

	type child struct {
		name  string // node name, extension stripped for requests
		entry os.DirEntry
	}
	byName := make(map[string]child)
	var listed []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		// environments/ holds variable files, never tree content.
		if entry.IsDir() && name == collection.EnvironmentsDirName {
			continue
		}
		if !entry.IsDir() {
			ext := filepath.Ext(name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			name = strings.TrimSuffix(name, ext)
		}
		byName[name] = child{name: name, entry: entry}
		listed = append(listed, name)
	}

	// Manifest order first, then anything the manifest missed.
	var ordered []child
	seen := make(map[string]bool)
	for _, name := range order {
		if c, ok := byName[name]; ok && !seen[name] {
			ordered = append(ordered, c)
			seen[name] = true
		}
	}
	for _, name := range listed {
		if !seen[name] {
			ordered = append(ordered, byName[name])
		}
	}

	for _, c := range ordered {
		if c.entry.IsDir() {
			id, err := st.CreateNode(parentID, collection.KindDirectory, c.name)
			if err != nil {
				return fmt.Errorf("load %s: %w", filepath.Join(absDir, c.name), err)
			}
			sub := filepath.Join(absDir, c.entry.Name())
			m, err := readManifest(sub)
			if err != nil {
				return err
			}
			if err := loadDir(st, id, sub, m.Order); err != nil {
				return err
			}
			continue
		}

		path := filepath.Join(absDir, c.entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		def, err := codec.DecodeRequest(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		id, err := st.CreateNode(parentID, collection.KindRequest, c.name)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if err := st.SetRequest(id, def); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func readManifest(absDir string) (codec.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(absDir, codec.ManifestName))
	if os.IsNotExist(err) {
		return codec.Manifest{}, nil
	}
	if err != nil {
		return codec.Manifest{}, fmt.Errorf("load %s: %w", absDir, err)
	}
	m, err := codec.DecodeManifest(data)
	if err != nil {
		return codec.Manifest{}, fmt.Errorf("load %s: %w", filepath.Join(absDir, codec.ManifestName), err)
	}
	return m, nil
}
