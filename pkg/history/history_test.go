package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Collection: "api", RequestPath: "Auth/Login", Method: "POST", URL: "https://x/login", StatusCode: 200, Size: 120, Duration: 80 * time.Millisecond, ExecutedAt: base},
		{Collection: "api", RequestPath: "Ping", Method: "GET", URL: "https://x/ping", StatusCode: 204, Duration: 5 * time.Millisecond, ExecutedAt: base.Add(time.Minute)},
		{Collection: "other", RequestPath: "Ping", Method: "GET", URL: "https://y/ping", StatusCode: 500, Duration: time.Second, ExecutedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := l.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := l.Recent(ctx, "api", "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (collections are isolated)", len(got))
	}
	if got[0].RequestPath != "Ping" || got[1].RequestPath != "Auth/Login" {
		t.Errorf("order = %s, %s; want newest first", got[0].RequestPath, got[1].RequestPath)
	}
	if got[1].StatusCode != 200 || got[1].Duration != 80*time.Millisecond {
		t.Errorf("round-trip lost fields: %+v", got[1])
	}
	if !got[1].ExecutedAt.Equal(base) {
		t.Errorf("executed at = %v, want %v", got[1].ExecutedAt, base)
	}

	byPath, err := l.Recent(ctx, "api", "Auth/Login", 10)
	if err != nil {
		t.Fatalf("recent by path: %v", err)
	}
	if len(byPath) != 1 || byPath[0].Method != "POST" {
		t.Errorf("path filter returned %+v", byPath)
	}
}

func TestCollectionKey(t *testing.T) {
	// The TUI keys by the open collection's directory and the CLI by the
	// --collection flag; both must land on the same value, unaffected by
	// renaming the collection's display name.
	tests := []struct {
		in   string
		want string
	}{
		{"api", "api"},
		{"/home/u/.config/hornet/collections/api", "api"},
		{"payments/", "payments"},
		{"./api", "api"},
	}
	for _, tt := range tests {
		if got := CollectionKey(tt.in); got != tt.want {
			t.Errorf("CollectionKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecentLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e := Entry{Collection: "api", RequestPath: "Ping", Method: "GET", URL: "https://x", StatusCode: 200,
			ExecutedAt: time.Date(2026, 8, 1, 12, i, 0, 0, time.UTC)}
		if err := l.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := l.Recent(ctx, "api", "", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d entries, want 3", len(got))
	}
}

func TestPrune(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		e := Entry{Collection: "api", RequestPath: "Ping", Method: "GET", URL: "https://x", StatusCode: 200,
			ExecutedAt: base.AddDate(0, 0, i)}
		if err := l.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	n, err := l.Prune(ctx, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}
	left, err := l.Recent(ctx, "api", "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(left) != 2 {
		t.Errorf("%d rows left, want 2", len(left))
	}
}

func TestLogSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()

	l, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Append(ctx, Entry{Collection: "api", RequestPath: "Ping", Method: "GET", URL: "https://x", StatusCode: 200}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	l2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	got, err := l2.Recent(ctx, "api", "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(got))
	}
}
