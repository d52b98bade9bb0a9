package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hornet-api/hornet/pkg/collection"
)

func TestExecuteSendsEnabledHeadersOnly(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	def := collection.RequestDef{
		Method: collection.MethodGet,
		URL:    srv.URL,
		Headers: []collection.HeaderEntry{
			{Name: "X-On", Value: "yes", Enabled: true},
			{Name: "X-Off", Value: "no", Enabled: false},
			{Name: "X-On", Value: "again", Enabled: true},
		},
	}
	resp, err := New(nil).Execute(context.Background(), def)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if vals := got.Values("X-On"); len(vals) != 2 || vals[0] != "yes" || vals[1] != "again" {
		t.Errorf("X-On = %v, want both enabled duplicates in order", vals)
	}
	if got.Get("X-Off") != "" {
		t.Error("disabled header was sent")
	}
}

func TestExecuteBodyRules(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		method   collection.Method
		body     string
		wantBody string
		wantCT   string
	}{
		{"post sends body with json default", collection.MethodPost, `{"a":1}`, `{"a":1}`, "application/json"},
		{"get drops body", collection.MethodGet, `{"a":1}`, "", ""},
		{"delete drops body", collection.MethodDelete, `{"a":1}`, "", ""},
		{"patch sends body", collection.MethodPatch, "x", "x", "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody, gotContentType = "", ""
			def := collection.RequestDef{Method: tt.method, URL: srv.URL, Body: tt.body}
			if _, err := New(nil).Execute(context.Background(), def); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if gotBody != tt.wantBody {
				t.Errorf("body = %q, want %q", gotBody, tt.wantBody)
			}
			if gotContentType != tt.wantCT {
				t.Errorf("content type = %q, want %q", gotContentType, tt.wantCT)
			}
		})
	}
}

func TestExecuteSubstitutesVariables(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	vars := Vars{"HOST": srv.URL, "USER_ID": "42", "TOKEN": "s3cret"}
	def := collection.RequestDef{
		Method: collection.MethodGet,
		URL:    "{{HOST}}/users/{{USER_ID}}",
		Auth:   collection.Auth{Kind: collection.AuthBearer, Token: "{{TOKEN}}"},
	}
	if _, err := New(vars).Execute(context.Background(), def); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotPath != "/users/42" {
		t.Errorf("path = %q, want /users/42", gotPath)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("authorization = %q", gotAuth)
	}
}

func TestExecuteBasicAuth(t *testing.T) {
	var user, pass string
	var ok bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok = r.BasicAuth()
	}))
	defer srv.Close()

	def := collection.RequestDef{
		Method: collection.MethodGet,
		URL:    srv.URL,
		Auth:   collection.Auth{Kind: collection.AuthBasic, Username: "alice", Password: "pw"},
	}
	if _, err := New(nil).Execute(context.Background(), def); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !ok || user != "alice" || pass != "pw" {
		t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
	}
}

func TestExecuteOAuth2CachesToken(t *testing.T) {
	tokenHits := 0
	var mux http.ServeMux
	var gotAuth []string
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenHits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	def := collection.RequestDef{
		Method: collection.MethodGet,
		URL:    srv.URL + "/api",
		Auth: collection.Auth{
			Kind:         collection.AuthOAuth2,
			TokenURL:     srv.URL + "/token",
			ClientID:     "cid",
			ClientSecret: "cs",
		},
	}
	r := New(nil)
	for i := 0; i < 2; i++ {
		if _, err := r.Execute(context.Background(), def); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	if tokenHits != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (cached)", tokenHits)
	}
	for _, a := range gotAuth {
		if a != "Bearer tok-1" {
			t.Errorf("authorization = %q", a)
		}
	}
}

func TestExecuteValidatesBodySchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server despite schema failure")
	}))
	defer srv.Close()

	def := collection.RequestDef{
		Method:     collection.MethodPost,
		URL:        srv.URL,
		Body:       `{"count":"not a number"}`,
		BodySchema: `{"type":"object","properties":{"count":{"type":"integer"}},"required":["count"]}`,
	}
	_, err := New(nil).Execute(context.Background(), def)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "does not match schema") {
		t.Errorf("error = %v", err)
	}

	def.Body = `{"count":3}`
	srvOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srvOK.Close()
	def.URL = srvOK.URL
	if _, err := New(nil).Execute(context.Background(), def); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
}

func TestVarsSubstitute(t *testing.T) {
	t.Setenv("HORNET_TEST_REGION", "eu-1")
	vars := Vars{"HOST": "api.example.com"}

	tests := []struct {
		in, want string
	}{
		{"https://{{HOST}}/v1", "https://api.example.com/v1"},
		{"{{env:HORNET_TEST_REGION}}", "eu-1"},
		{"{{MISSING}}", "{{MISSING}}"},
		{"plain", "plain"},
		{"{{ HOST }}", "api.example.com"},
	}
	for _, tt := range tests {
		if got := vars.Substitute(tt.in); got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadVarsResolvesEnvRefs(t *testing.T) {
	t.Setenv("HORNET_TEST_SECRET", "hunter2")
	path := filepath.Join(t.TempDir(), "dev.yaml")
	content := "HOST: api.example.com\nSECRET: \"{{env:HORNET_TEST_SECRET}}\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	vars, err := LoadVars(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if vars["HOST"] != "api.example.com" {
		t.Errorf("HOST = %q", vars["HOST"])
	}
	if vars["SECRET"] != "hunter2" {
		t.Errorf("SECRET = %q, want resolved env ref", vars["SECRET"])
	}
}

func TestListEnvironments(t *testing.T) {
	dir := t.TempDir()
	envDir := filepath.Join(dir, "environments")
	if err := os.MkdirAll(envDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"dev.yaml", "prod.yml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(envDir, f), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	names, err := ListEnvironments(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "dev" || names[1] != "prod" {
		t.Errorf("environments = %v, want [dev prod]", names)
	}

	none, err := ListEnvironments(t.TempDir())
	if err != nil || none != nil {
		t.Errorf("missing dir: names=%v err=%v, want nil/nil", none, err)
	}
}

func TestPrettyJSON(t *testing.T) {
	got := PrettyJSON(`{"a":1}`)
	want := "{\n  \"a\": 1\n}"
	if got != want {
		t.Errorf("PrettyJSON = %q, want %q", got, want)
	}
	if got := PrettyJSON("not json"); got != "not json" {
		t.Errorf("non-JSON input changed: %q", got)
	}
}

func TestRunDirectoryExecutesInOrderAndAttaches(t *testing.T) {
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer srv.Close()

	st := collection.NewStore(collection.Info{Name: "suite"})
	dir, err := st.CreateNode(st.Root().ID(), collection.KindDirectory, "Smoke")
	if err != nil {
		t.Fatal(err)
	}
	var ids []collection.NodeID
	for _, name := range []string{"first", "second", "third"} {
		id, err := st.CreateNode(dir, collection.KindRequest, name)
		if err != nil {
			t.Fatal(err)
		}
		if err := st.SetURL(id, srv.URL+"/"+name); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	st.ResetClean()

	res, err := New(nil).RunDirectory(context.Background(), st, dir, SuiteOptions{RequestsPerSecond: 100})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(res.Outcomes))
	}
	if strings.Join(gotPaths, ",") != "/first,/second,/third" {
		t.Errorf("request order = %v", gotPaths)
	}
	if res.Outcomes[0].Path != "first" {
		t.Errorf("outcome path = %q, want first", res.Outcomes[0].Path)
	}
	if res.Failed() != 0 {
		t.Errorf("failed = %d", res.Failed())
	}
	if res.LatencyP50 <= 0 || res.LatencyP99 < res.LatencyP50 {
		t.Errorf("latency stats p50=%v p99=%v", res.LatencyP50, res.LatencyP99)
	}

	// Responses land on the nodes without dirtying anything.
	for _, id := range ids {
		n, err := st.Find(id)
		if err != nil {
			t.Fatal(err)
		}
		if n.LastResponse() == nil {
			t.Errorf("node %s has no attached response", n.Name())
		}
	}
	if st.AnyDirty() {
		t.Error("folder run dirtied the collection")
	}

	if _, err := New(nil).RunDirectory(context.Background(), st, ids[0], SuiteOptions{}); err == nil {
		t.Error("running a request node as a folder should fail")
	}
}
