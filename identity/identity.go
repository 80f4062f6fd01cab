package identity

import (
	"context"
	"errors"
)

// ErrNotFound indicates that no identity exists for the subject.
var ErrNotFound = errors.New("identity not found")

// Record is the persisted identity owned by the identity store.
type Record struct {
	ID     string
	Role   string
	Status string
}

// Lookup resolves a token subject to its persisted identity.
type Lookup interface {
	Find(ctx context.Context, subjectID string) (Record, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, subjectID string) (Record, error)

// Find implements Lookup.
func (f LookupFunc) Find(ctx context.Context, subjectID string) (Record, error) {
	return f(ctx, subjectID)
}
