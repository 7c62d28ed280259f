package attach

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// Both local backends must honor the same contract; the s3 backend is
// covered by integration environments.
func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			body := "pretend this is a microscope image"

			info, err := store.Put(ctx, "events/1/colony.png", strings.NewReader(body), PutOptions{
				ContentType: "image/png",
				Metadata:    map[string]string{"event": "1"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != int64(len(body)) {
				t.Fatalf("expected size %d, got %d", len(body), info.Size)
			}

			got, rc, err := store.Get(ctx, "events/1/colony.png")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer func() { _ = rc.Close() }()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != body {
				t.Fatalf("content mismatch: %q", data)
			}
			if got.ContentType != "image/png" {
				t.Fatalf("content type lost: %+v", got)
			}

			head, err := store.Head(ctx, "events/1/colony.png")
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if head.Size != info.Size {
				t.Fatalf("head size mismatch: %+v", head)
			}
		})
	}
}

func TestPutRejectsOverwrite(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "k", strings.NewReader("a"), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, "k", strings.NewReader("b"), PutOptions{}); err == nil {
				t.Fatalf("expected overwrite rejection")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "gone", strings.NewReader("x"), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			ok, err := store.Delete(ctx, "gone")
			if err != nil || !ok {
				t.Fatalf("delete: ok=%v err=%v", ok, err)
			}
			ok, err = store.Delete(ctx, "gone")
			if err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if ok {
				t.Fatalf("expected false for absent key")
			}
			if _, err := store.Head(ctx, "gone"); err == nil {
				t.Fatalf("expected head failure after delete")
			}
		})
	}
}

func TestListByPrefix(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"events/1/a.png", "events/1/b.png", "events/2/c.png"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			infos, err := store.List(ctx, "events/1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(infos) != 2 {
				t.Fatalf("expected 2 entries, got %+v", infos)
			}
			if infos[0].Key != "events/1/a.png" || infos[1].Key != "events/1/b.png" {
				t.Fatalf("unexpected keys: %+v", infos)
			}
		})
	}
}

func TestURL(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "u", strings.NewReader("x"), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			url, err := store.URL(ctx, "u", time.Minute)
			if err != nil {
				t.Fatalf("url: %v", err)
			}
			if url == "" {
				t.Fatalf("expected non-empty url")
			}
			if _, err := store.URL(ctx, "missing", time.Minute); err == nil {
				t.Fatalf("expected error for missing key")
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		key string
		ok  bool
	}{
		{"events/1/a.png", true},
		{"plain.txt", true},
		{"", false},
		{"  ", false},
		{"../escape", false},
		{"a/../../b", false},
		{"/absolute", false},
	}
	for _, tc := range cases {
		_, err := sanitizeKey(tc.key)
		if tc.ok && err != nil {
			t.Fatalf("sanitizeKey(%q) unexpected error: %v", tc.key, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("sanitizeKey(%q) expected error", tc.key)
		}
	}
}
