package header

import "testing"

func TestCaseInsensitiveSetGet(t *testing.T) {
	h := New()
	h.Set("Subject", "hello")
	if got := h.Get("SUBJECT"); got != "hello" {
		t.Fatalf("Get(SUBJECT) = %q, want hello", got)
	}
	if !h.Has("subject") {
		t.Fatal("expected Has(subject) true")
	}
}

func TestPreservesOriginalCaseAndOrder(t *testing.T) {
	h := New()
	h.Set("X-Newsreader", "a")
	h.Set("Message-ID", "b")
	h.Set("x-newsreader", "c") // re-set, same key different case
	if got := h.Keys(); len(got) != 2 || got[0] != "X-Newsreader" || got[1] != "Message-ID" {
		t.Fatalf("unexpected keys/order: %v", got)
	}
	if got := h.Get("X-NEWSREADER"); got != "c" {
		t.Fatalf("expected re-Set to overwrite value, got %q", got)
	}
}

func TestDelAndLen(t *testing.T) {
	h := New()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Del("a")
	if h.Len() != 1 {
		t.Fatalf("expected Len 1 after Del, got %d", h.Len())
	}
	if h.Has("A") {
		t.Fatal("expected A removed")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	h := New()
	h.Set("A", "1")
	c := h.Copy()
	c.Set("A", "2")
	if h.Get("A") != "1" {
		t.Fatalf("original mutated by copy: %q", h.Get("A"))
	}
}
