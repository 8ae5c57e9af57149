package memory

import (
	"context"
	"strings"
	"testing"
)

func TestBlobStorePutObjectKeepsCopy(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "oews/oe.area", "text/plain", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://oews/oe.area" {
		t.Fatalf("unexpected uri %s", uri)
	}

	got, ok := store.Get("oews/oe.area")
	if !ok || string(got) != "content" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	got[0] = 'C'
	again, _ := store.Get("oews/oe.area")
	if string(again) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
	if ct := store.ContentType("oews/oe.area"); ct != "text/plain" {
		t.Fatalf("ContentType() = %q", ct)
	}
}

func TestBlobStorePaths(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, p := range []string{"b", "a", "c"} {
		if _, err := store.PutObject(context.Background(), p, "", strings.NewReader(p)); err != nil {
			t.Fatalf("PutObject(%s) error = %v", p, err)
		}
	}
	if got := strings.Join(store.Paths(), ","); got != "a,b,c" {
		t.Fatalf("Paths() = %s", got)
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatal("Get(missing) reported ok")
	}
}
