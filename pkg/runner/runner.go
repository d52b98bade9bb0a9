// Package runner executes request definitions against real endpoints.
// It works on immutable snapshots taken from the store and reports
// results back through AttachResponse, so execution never dirties the
// collection.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hornet-api/hornet/pkg/collection"
)

// Runner performs HTTP requests for the collection's request nodes.
type Runner struct {
	client *http.Client
	vars   Vars

	tokens tokenCache
}

// New creates a runner that substitutes vars into every request before
// sending. A nil vars map disables substitution.
func New(vars Vars) *Runner {
	return &Runner{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		vars: vars,
	}
}

// Execute sends one request and returns the observed response. The
// definition is a value copy; the caller's tree is never touched.
//
// Bodies are only sent for methods that allow them. A body with no
// explicit Content-Type header is sent as application/json, matching
// what the editor produces by default.
func (r *Runner) Execute(ctx context.Context, def collection.RequestDef) (*collection.Response, error) {
	url := r.vars.Substitute(def.URL)
	if url == "" {
		return nil, fmt.Errorf("execute: request has no url")
	}

	body := ""
	if def.Method.AllowsBody() && def.Body != "" {
		body = r.vars.Substitute(def.Body)
		if def.BodySchema != "" {
			if err := ValidateBody(def.BodySchema, body); err != nil {
				return nil, fmt.Errorf("execute: %w", err)
			}
		}
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, def.Method.String(), url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	hasContentType := false
	for _, h := range def.Headers {
		if !h.Enabled {
			continue
		}
		name := r.vars.Substitute(h.Name)
		req.Header.Add(name, r.vars.Substitute(h.Value))
		if strings.EqualFold(name, "Content-Type") {
			hasContentType = true
		}
	}
	if body != "" && !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := r.applyAuth(ctx, req, def.Auth); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s %s: %w", def.Method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("execute %s %s: read response: %w", def.Method, url, err)
	}

	return &collection.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    flattenHeaders(resp.Header),
		Body:       string(respBody),
		Size:       int64(len(respBody)),
		Duration:   time.Since(start),
		ReceivedAt: time.Now(),
	}, nil
}

// flattenHeaders converts the response header map into ordered entries,
// sorted by name so the viewer renders them stably.
func flattenHeaders(h http.Header) []collection.HeaderEntry {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]collection.HeaderEntry, 0, len(names))
	for _, name := range names {
		out = append(out, collection.HeaderEntry{
			Name:    name,
			Value:   strings.Join(h[name], ", "),
			Enabled: true,
		})
	}
	return out
}

// PrettyJSON indents a JSON document for display. Non-JSON input is
// returned unchanged, so it is safe to call on any response body.
func PrettyJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	return buf.String()
}
