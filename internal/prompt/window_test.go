package prompt

import (
	"bytes"
	"testing"
)

func fill(w *Window, p []byte) {
	copy(w.Free(), p)
	w.Extend(len(p))
}

func TestWindowAppendAdvance(t *testing.T) {
	var w Window

	fill(&w, []byte("Password: "))
	if got := w.Bytes(); !bytes.Equal(got, []byte("Password: ")) {
		t.Fatalf("Bytes() = %q", got)
	}

	// A match consumed through offset 10 drops the prefix.
	w.Advance(10)
	if w.Len() != 0 {
		t.Fatalf("Len() = %d after full advance, want 0", w.Len())
	}

	fill(&w, []byte("more"))
	if got := w.Bytes(); !bytes.Equal(got, []byte("more")) {
		t.Fatalf("Bytes() after advance+append = %q", got)
	}
}

func TestWindowScrubNUL(t *testing.T) {
	var w Window

	chunk := []byte("a\x00b\x00")
	copy(w.Free(), chunk)
	w.ScrubNUL(len(chunk))
	w.Extend(len(chunk))

	if got := w.Bytes(); !bytes.Equal(got, []byte{'a', 0xFF, 'b', 0xFF}) {
		t.Errorf("Bytes() = %v, want NULs rewritten to 0xFF", got)
	}
	// The source chunk the caller forwarded must not share storage
	// semantics: the rewrite happens in the window region itself, after
	// the bytes were copied out for forwarding.
	if chunk[1] != 0 {
		t.Error("caller's chunk mutated; scrub must touch only the window")
	}
}

func TestWindowCompactKeepsNewestBytes(t *testing.T) {
	var w Window

	// Fill the region completely with a recognizable sequence.
	total := 0
	for total < windowCap {
		free := w.Free()
		n := len(free)
		if n > 1000 {
			n = 1000
		}
		for i := 0; i < n; i++ {
			free[i] = byte((total + i) % 251)
		}
		w.Extend(n)
		total += n
		w.Compact()
	}

	if w.Len() > ChunkSize {
		t.Fatalf("Len() = %d after compaction, want <= %d", w.Len(), ChunkSize)
	}
	if len(w.Free()) == 0 {
		t.Fatal("Free() empty after compaction; window can no longer accept reads")
	}

	// The survivors must be the newest bytes, re-anchored at the start.
	got := w.Bytes()
	for i, b := range got {
		want := byte((total - len(got) + i) % 251)
		if b != want {
			t.Fatalf("byte %d = %d, want %d (oldest bytes must be discarded)", i, b, want)
		}
	}
}

func TestWindowCompactNoopWhenRoomRemains(t *testing.T) {
	var w Window
	fill(&w, []byte("abc"))
	w.Compact()
	if got := w.Bytes(); !bytes.Equal(got, []byte("abc")) {
		t.Errorf("Bytes() = %q after no-op compact", got)
	}
}

func TestWindowReset(t *testing.T) {
	var w Window
	fill(&w, []byte("leftover"))
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", w.Len())
	}
	if len(w.Free()) != windowCap {
		t.Errorf("Free() = %d bytes after Reset, want %d", len(w.Free()), windowCap)
	}
}
