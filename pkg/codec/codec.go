// Package codec converts collection state to and from its persisted YAML
// form. It is pure: no I/O, and encoding the same logical state always
// yields the same bytes, so the sync engine can compare and write them
// without surprises.
package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hornet-api/hornet/pkg/collection"
)

// ManifestName is the per-directory file carrying display order, and at
// the collection root also the collection's name and description.
const ManifestName = ".hornet.yaml"

// Manifest is the decoded form of a directory manifest.
type Manifest struct {
	Name        string   `yaml:"name,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Order       []string `yaml:"order"`
}

type headerDoc struct {
	Name    string `yaml:"name"`
	Value   string `yaml:"value"`
	Enabled bool   `yaml:"enabled"`
}

type authDoc struct {
	Kind         string   `yaml:"kind"`
	Token        string   `yaml:"token,omitempty"`
	Username     string   `yaml:"username,omitempty"`
	Password     string   `yaml:"password,omitempty"`
	TokenURL     string   `yaml:"tokenUrl,omitempty"`
	ClientID     string   `yaml:"clientId,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

type requestDoc struct {
	Method     string      `yaml:"method"`
	URL        string      `yaml:"url"`
	Headers    []headerDoc `yaml:"headers,omitempty"`
	Auth       *authDoc    `yaml:"auth,omitempty"`
	Body       string      `yaml:"body,omitempty"`
	BodySchema string      `yaml:"bodySchema,omitempty"`
}

func headersToDoc(hs []collection.HeaderEntry) []headerDoc {
	if len(hs) == 0 {
		return nil
	}
	out := make([]headerDoc, len(hs))
	for i, h := range hs {
		out[i] = headerDoc{Name: h.Name, Value: h.Value, Enabled: h.Enabled}
	}
	return out
}

func headersFromDoc(hs []headerDoc) []collection.HeaderEntry {
	if len(hs) == 0 {
		return nil
	}
	out := make([]collection.HeaderEntry, len(hs))
	for i, h := range hs {
		out[i] = collection.HeaderEntry{Name: h.Name, Value: h.Value, Enabled: h.Enabled}
	}
	return out
}

func authToDoc(a collection.Auth) *authDoc {
	if a.Kind == collection.AuthNone {
		return nil
	}
	return &authDoc{
		Kind:         a.Kind.String(),
		Token:        a.Token,
		Username:     a.Username,
		Password:     a.Password,
		TokenURL:     a.TokenURL,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Scopes:       a.Scopes,
	}
}

func authFromDoc(d *authDoc) (collection.Auth, error) {
	if d == nil {
		return collection.Auth{}, nil
	}
	kind, err := collection.ParseAuthKind(d.Kind)
	if err != nil {
		return collection.Auth{}, err
	}
	return collection.Auth{
		Kind:         kind,
		Token:        d.Token,
		Username:     d.Username,
		Password:     d.Password,
		TokenURL:     d.TokenURL,
		ClientID:     d.ClientID,
		ClientSecret: d.ClientSecret,
		Scopes:       d.Scopes,
	}, nil
}

func requestToDoc(def collection.RequestDef) requestDoc {
	return requestDoc{
		Method:     def.Method.String(),
		URL:        def.URL,
		Headers:    headersToDoc(def.Headers),
		Auth:       authToDoc(def.Auth),
		Body:       def.Body,
		BodySchema: def.BodySchema,
	}
}

func requestFromDoc(doc requestDoc) (collection.RequestDef, error) {
	if doc.Method == "" {
		return collection.RequestDef{}, fmt.Errorf("missing request method")
	}
	method, err := collection.ParseMethod(doc.Method)
	if err != nil {
		return collection.RequestDef{}, err
	}
	auth, err := authFromDoc(doc.Auth)
	if err != nil {
		return collection.RequestDef{}, err
	}
	return collection.RequestDef{
		Method:     method,
		URL:        doc.URL,
		Headers:    headersFromDoc(doc.Headers),
		Auth:       auth,
		Body:       doc.Body,
		BodySchema: doc.BodySchema,
	}, nil
}

// EncodeRequest serializes one request definition into its file form.
func EncodeRequest(def collection.RequestDef) ([]byte, error) {
	data, err := yaml.Marshal(requestToDoc(def))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// DecodeRequest parses a request file. On failure the caller's state is
// untouched and the error names the offending location or field.
func DecodeRequest(data []byte) (collection.RequestDef, error) {
	var doc requestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return collection.RequestDef{}, fmt.Errorf("parse request: %w", err)
	}
	def, err := requestFromDoc(doc)
	if err != nil {
		return collection.RequestDef{}, fmt.Errorf("parse request: %w", err)
	}
	return def, nil
}

// EncodeManifest serializes a directory manifest.
func EncodeManifest(m Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses a directory manifest.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
