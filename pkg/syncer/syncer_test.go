package syncer

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hornet-api/hornet/pkg/collection"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "api")
	e, err := Create(dir, collection.Info{Name: "My API"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	return e
}

func mustCreate(t *testing.T, st *collection.Store, parent collection.NodeID, kind collection.Kind, name string) collection.NodeID {
	t.Helper()
	id, err := st.CreateNode(parent, kind, name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return id
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return err == nil
}

func TestCreateEditFlushReload(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()

	auth := mustCreate(t, st, st.Root().ID(), collection.KindDirectory, "Auth")
	login := mustCreate(t, st, auth, collection.KindRequest, "Login")
	if err := st.SetMethod(login, collection.MethodPost); err != nil {
		t.Fatalf("set method: %v", err)
	}
	if err := st.SetURL(login, "https://api.example.com/login"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := st.AddHeader(login, "Content-Type", "application/json"); err != nil {
		t.Fatalf("add header: %v", err)
	}

	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if st.AnyDirty() {
		t.Error("dirty set should be empty after a successful flush")
	}
	if !exists(t, filepath.Join(e.Dir(), "Auth", "Login.yaml")) {
		t.Fatal("Auth/Login.yaml not written")
	}

	re, err := Open(e.Dir())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	rst := re.Store()
	if rst.Info().Name != "My API" {
		t.Errorf("reloaded name = %q, want My API", rst.Info().Name)
	}
	found := false
	for n := range rst.Root().Subtree() {
		if n.Kind() != collection.KindRequest || n.Name() != "Login" {
			continue
		}
		found = true
		def := n.Request()
		if def.Method != collection.MethodPost {
			t.Errorf("method = %v, want POST", def.Method)
		}
		if def.URL != "https://api.example.com/login" {
			t.Errorf("url = %q", def.URL)
		}
		if len(def.Headers) != 1 || def.Headers[0].Name != "Content-Type" ||
			def.Headers[0].Value != "application/json" || !def.Headers[0].Enabled {
			t.Errorf("headers = %+v, want one enabled Content-Type entry", def.Headers)
		}
		names, _ := rst.PathOf(n.ID())
		if strings.Join(names, "/") != "Auth/Login" {
			t.Errorf("path = %v, want Auth/Login", names)
		}
	}
	if !found {
		t.Fatal("Login not present after reload")
	}
}

func TestOpenSkipsEnvironmentsDir(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Ping")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// hornet init seeds a variable file under the collection directory;
	// it is not tree content and must not break reopening.
	envDir := filepath.Join(e.Dir(), "environments")
	if err := os.MkdirAll(envDir, 0755); err != nil {
		t.Fatalf("mkdir environments: %v", err)
	}
	if err := os.WriteFile(filepath.Join(envDir, "default.yaml"), []byte("{}\n"), 0644); err != nil {
		t.Fatalf("write default.yaml: %v", err)
	}

	re, err := Open(e.Dir())
	if err != nil {
		t.Fatalf("reopen with environments dir: %v", err)
	}
	var names []string
	for n := range re.Store().Root().Subtree() {
		if n != re.Store().Root() {
			names = append(names, n.Name())
		}
	}
	if len(names) != 1 || names[0] != "Ping" {
		t.Errorf("loaded nodes = %v, want only Ping", names)
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Ping")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Remove the persisted file behind the engine's back. A clean flush
	// must issue zero writes, so the file must not come back.
	ping := filepath.Join(e.Dir(), "Ping.yaml")
	if err := os.Remove(ping); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if exists(t, ping) {
		t.Error("clean flush rewrote a file; expected a no-op")
	}
	if e.State() != StateClean {
		t.Errorf("state = %v, want clean", e.State())
	}
}

func TestDeleteSubtreeRemovedFromStorage(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	auth := mustCreate(t, st, st.Root().ID(), collection.KindDirectory, "Auth")
	mustCreate(t, st, auth, collection.KindRequest, "Login")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Login is clean; deleting Auth must still remove both from disk.
	if err := st.DeleteNode(auth); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush after delete: %v", err)
	}
	if exists(t, filepath.Join(e.Dir(), "Auth")) {
		t.Error("deleted directory still on disk")
	}

	re, err := Open(e.Dir())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	for n := range re.Store().Root().Subtree() {
		if n.Name() == "Auth" || n.Name() == "Login" {
			t.Errorf("%s still present after reload", n.Name())
		}
	}
}

func TestRenameMovesFileInsteadOfRewriting(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	ping := mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Ping")
	if err := st.SetURL(ping, "https://api.example.com/ping"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := st.RenameNode(ping, "Health"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if exists(t, filepath.Join(e.Dir(), "Ping.yaml")) {
		t.Error("old file left behind after rename flush")
	}
	if !exists(t, filepath.Join(e.Dir(), "Health.yaml")) {
		t.Error("renamed file missing")
	}
}

func TestMoveDirectoryOnDisk(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	v1 := mustCreate(t, st, st.Root().ID(), collection.KindDirectory, "v1")
	v2 := mustCreate(t, st, st.Root().ID(), collection.KindDirectory, "v2")
	mustCreate(t, st, v1, collection.KindRequest, "Users")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := st.MoveNode(v1, v2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if !exists(t, filepath.Join(e.Dir(), "v2", "v1", "Users.yaml")) {
		t.Error("moved subtree not at new location")
	}
	if exists(t, filepath.Join(e.Dir(), "v1")) {
		t.Error("old directory left behind after move")
	}
}

func TestForcedFlushOnNavigation(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	ping := mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Ping")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := st.SetURL(ping, "https://api.example.com/ping"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	// Moving focus off the dirty request must flush before navigation
	// completes.
	if err := e.NavigateAway(ping); err != nil {
		t.Fatalf("navigate away: %v", err)
	}
	if st.IsDirty(ping) {
		t.Error("request still dirty after forced flush")
	}
	data, err := os.ReadFile(filepath.Join(e.Dir(), "Ping.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "https://api.example.com/ping") {
		t.Error("edit not persisted by forced flush")
	}

	// Navigating away from a clean node is free: no writes at all.
	if err := os.Remove(filepath.Join(e.Dir(), "Ping.yaml")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := e.NavigateAway(ping); err != nil {
		t.Fatalf("navigate away clean: %v", err)
	}
	if exists(t, filepath.Join(e.Dir(), "Ping.yaml")) {
		t.Error("clean navigation triggered a write")
	}
}

func TestPartialFlushFailureRetriesOnlyOutstanding(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	a := mustCreate(t, st, st.Root().ID(), collection.KindRequest, "a")
	b := mustCreate(t, st, st.Root().ID(), collection.KindRequest, "b")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := st.SetURL(a, "https://x/a"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := st.SetURL(b, "https://x/b"); err != nil {
		t.Fatalf("set b: %v", err)
	}

	// Obstruct b's path with a non-empty directory so its write fails
	// while a's succeeds.
	obstruction := filepath.Join(e.Dir(), "b.yaml")
	if err := os.Remove(obstruction); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(obstruction, "block"), 0755); err != nil {
		t.Fatalf("obstruct: %v", err)
	}

	if err := e.Flush(); err == nil {
		t.Fatal("expected a partial flush failure")
	}
	if st.IsDirty(a) {
		t.Error("successfully written node was re-marked dirty")
	}
	if !st.IsDirty(b) {
		t.Error("failed node must stay dirty for retry")
	}

	// Clear the obstruction; the next flush retries only b.
	if err := os.RemoveAll(obstruction); err != nil {
		t.Fatalf("clear obstruction: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if st.AnyDirty() {
		t.Error("collection should be clean after retry")
	}
}

func TestSiblingOrderSurvivesReload(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	// Deliberately not alphabetical: order is display order.
	for _, name := range []string{"zeta", "alpha", "mike"} {
		mustCreate(t, st, st.Root().ID(), collection.KindRequest, name)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	re, err := Open(e.Dir())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	var got []string
	for _, c := range re.Store().Root().Children() {
		got = append(got, c.Name())
	}
	if strings.Join(got, ",") != "zeta,alpha,mike" {
		t.Errorf("reloaded order = %v, want [zeta alpha mike]", got)
	}
}

func TestIndependentCollectionsFlushConcurrently(t *testing.T) {
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")
	ea, err := Create(dirA, collection.Info{Name: "A"})
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	eb, err := Create(dirB, collection.Info{Name: "B"})
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	var wg sync.WaitGroup
	for _, e := range []*Engine{ea, eb} {
		wg.Add(1)
		go func(e *Engine) {
			defer wg.Done()
			st := e.Store()
			for i := 0; i < 20; i++ {
				id, err := st.CreateNode(st.Root().ID(), collection.KindRequest, "r"+string(rune('a'+i)))
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if err := st.SetURL(id, "https://x"); err != nil {
					t.Errorf("set url: %v", err)
					return
				}
				if err := e.Flush(); err != nil {
					t.Errorf("flush: %v", err)
					return
				}
			}
		}(e)
	}
	wg.Wait()

	ra, err := Open(dirA)
	if err != nil {
		t.Fatalf("reload a: %v", err)
	}
	rb, err := Open(dirB)
	if err != nil {
		t.Fatalf("reload b: %v", err)
	}
	if n := len(ra.Store().Root().Children()); n != 20 {
		t.Errorf("collection a has %d requests, want 20", n)
	}
	if rb.Store().Info().Name != "B" {
		t.Errorf("collection b name = %q", rb.Store().Info().Name)
	}
}

func TestDiscardDropsUnflushedChanges(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	ping := mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Ping")
	if err := st.SetURL(ping, "https://kept"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := st.SetURL(ping, "https://abandoned"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	if err := e.Discard(); err != nil {
		t.Fatalf("discard: %v", err)
	}

	st = e.Store() // discard swaps the store
	if st.AnyDirty() {
		t.Error("store dirty after discard")
	}
	for n := range st.Root().Subtree() {
		if n.Kind() == collection.KindRequest && n.Request().URL != "https://kept" {
			t.Errorf("url = %q, want the persisted value", n.Request().URL)
		}
	}
}

func TestOpenReportsMalformedFile(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	mustCreate(t, st, st.Root().ID(), collection.KindRequest, "Bad")
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	path := filepath.Join(e.Dir(), "Bad.yaml")
	if err := os.WriteFile(path, []byte("method: [broken"), 0644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	_, err := Open(e.Dir())
	if err == nil {
		t.Fatal("expected load failure on malformed file")
	}
	if !strings.Contains(err.Error(), "Bad.yaml") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	st := e.Store()
	auth := mustCreate(t, st, st.Root().ID(), collection.KindDirectory, "Auth")
	login := mustCreate(t, st, auth, collection.KindRequest, "Login")
	if err := st.SetMethod(login, collection.MethodPost); err != nil {
		t.Fatalf("set method: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "api.yaml")
	if err := e.Export(exportPath); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	imported, err := Import(filepath.Join(t.TempDir(), "copy"), data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	found := false
	for n := range imported.Store().Root().Subtree() {
		if n.Name() == "Login" && n.Kind() == collection.KindRequest {
			found = true
			if n.Request().Method != collection.MethodPost {
				t.Errorf("imported method = %v, want POST", n.Request().Method)
			}
		}
	}
	if !found {
		t.Error("imported collection missing Auth/Login")
	}
}
