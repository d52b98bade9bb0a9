package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hornet-api/hornet/pkg/collection"
)

// ExportNode is one entry of the single-document collection form used by
// export and import. Directories carry Children (possibly empty),
// requests carry Def.
type ExportNode struct {
	Name     string
	Kind     collection.Kind
	Def      collection.RequestDef
	Children []ExportNode
}

// entryDoc is the on-the-wire shape of an ExportNode. A directory is
// recognized by the presence of a children key, a request by its
// absence, matching how hornet tells the two apart everywhere else.
type entryDoc struct {
	Name       string      `yaml:"name"`
	Method     string      `yaml:"method,omitempty"`
	URL        string      `yaml:"url,omitempty"`
	Headers    []headerDoc `yaml:"headers,omitempty"`
	Auth       *authDoc    `yaml:"auth,omitempty"`
	Body       string      `yaml:"body,omitempty"`
	BodySchema string      `yaml:"bodySchema,omitempty"`
	Children   *[]entryDoc `yaml:"children,omitempty"`
}

type collectionDoc struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Requests    []entryDoc `yaml:"requests"`
}

// SnapshotTree converts a live subtree into export nodes. The traversal
// is read-only and preserves child order.
func SnapshotTree(dir *collection.Node) []ExportNode {
	children := dir.Children()
	out := make([]ExportNode, 0, len(children))
	for _, c := range children {
		n := ExportNode{Name: c.Name(), Kind: c.Kind()}
		if c.Kind() == collection.KindDirectory {
			n.Children = SnapshotTree(c)
			if n.Children == nil {
				n.Children = []ExportNode{}
			}
		} else {
			n.Def = c.Request()
		}
		out = append(out, n)
	}
	return out
}

func exportToDoc(nodes []ExportNode) []entryDoc {
	out := make([]entryDoc, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == collection.KindDirectory {
			children := exportToDoc(n.Children)
			out = append(out, entryDoc{Name: n.Name, Children: &children})
			continue
		}
		rd := requestToDoc(n.Def)
		out = append(out, entryDoc{
			Name:       n.Name,
			Method:     rd.Method,
			URL:        rd.URL,
			Headers:    rd.Headers,
			Auth:       rd.Auth,
			Body:       rd.Body,
			BodySchema: rd.BodySchema,
		})
	}
	return out
}

func exportFromDoc(docs []entryDoc) ([]ExportNode, error) {
	out := make([]ExportNode, 0, len(docs))
	for _, d := range docs {
		if d.Name == "" {
			return nil, fmt.Errorf("entry with empty name")
		}
		if d.Children != nil {
			children, err := exportFromDoc(*d.Children)
			if err != nil {
				return nil, fmt.Errorf("in directory %q: %w", d.Name, err)
			}
			out = append(out, ExportNode{Name: d.Name, Kind: collection.KindDirectory, Children: children})
			continue
		}
		def, err := requestFromDoc(requestDoc{
			Method:     d.Method,
			URL:        d.URL,
			Headers:    d.Headers,
			Auth:       d.Auth,
			Body:       d.Body,
			BodySchema: d.BodySchema,
		})
		if err != nil {
			return nil, fmt.Errorf("request %q: %w", d.Name, err)
		}
		out = append(out, ExportNode{Name: d.Name, Kind: collection.KindRequest, Def: def})
	}
	return out, nil
}

// EncodeCollection serializes a whole collection into one YAML document.
func EncodeCollection(info collection.Info, nodes []ExportNode) ([]byte, error) {
	doc := collectionDoc{
		Name:        info.Name,
		Description: info.Description,
		Requests:    exportToDoc(nodes),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

// DecodeCollection parses a single-document collection.
func DecodeCollection(data []byte) (collection.Info, []ExportNode, error) {
	var doc collectionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return collection.Info{}, nil, fmt.Errorf("parse collection: %w", err)
	}
	nodes, err := exportFromDoc(doc.Requests)
	if err != nil {
		return collection.Info{}, nil, fmt.Errorf("parse collection: %w", err)
	}
	return collection.Info{Name: doc.Name, Description: doc.Description}, nodes, nil
}
