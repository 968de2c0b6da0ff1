package agent

import "context"

// Definition is the externally managed configuration of one agent,
// referenced by an opaque ID.
type Definition struct {
	ID           string
	Instructions string
	Model        string
	Temperature  float64
}

// Resolver looks up agent definitions by ID.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Definition, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, id string) (*Definition, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, id string) (*Definition, error) {
	return f(ctx, id)
}
