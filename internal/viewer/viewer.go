package viewer

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// Viewer identifies one browser looking at the dashboard. Each viewer gets
// its own view state per card.
type Viewer struct {
	ID  string
	New bool
}

// NewID returns a fresh random viewer id.
func NewID() string {
	return uuid.NewString()
}

// Valid reports whether id looks like an id issued by NewID.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, contextKey{}, v)
}

func FromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(contextKey{}).(Viewer)
	return v, ok
}

// ID returns the viewer id stored in ctx, or "" when there is none.
func ID(ctx context.Context) string {
	v, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return v.ID
}
