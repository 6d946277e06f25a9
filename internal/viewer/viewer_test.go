package viewer

import (
	"context"
	"testing"
)

func TestWithViewerRoundTrip(t *testing.T) {
	id := NewID()
	ctx := WithViewer(context.Background(), Viewer{ID: id, New: true})

	v, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected viewer in context")
	}
	if v.ID != id || !v.New {
		t.Errorf("viewer = %+v", v)
	}
	if got := ID(ctx); got != id {
		t.Errorf("ID = %q, want %q", got, id)
	}
}

func TestIDEmptyContext(t *testing.T) {
	if got := ID(context.Background()); got != "" {
		t.Errorf("ID = %q, want empty", got)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no viewer")
	}
}

func TestValid(t *testing.T) {
	if !Valid(NewID()) {
		t.Error("fresh id should be valid")
	}
	for _, bad := range []string{"", "abc", "../../etc/passwd"} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true", bad)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
