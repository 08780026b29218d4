package reqid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the request ID.
type key struct{}

// NewContext returns a copy of parent with a new random request ID stored.
// It also returns the generated ID.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// FromIncoming stores id when it is a well-formed UUID and falls back to
// NewContext otherwise.
func FromIncoming(parent context.Context, id string) (context.Context, string) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return NewContext(parent)
	}
	s := parsed.String()
	return context.WithValue(parent, key{}, s), s
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
