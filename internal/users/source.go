package users

import "context"

// Source produces the full, ordered directory from wherever it lives. A
// failed fetch returns no users and a *TransportError or *DecodeError.
type Source interface {
	FetchAll(ctx context.Context) ([]User, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]User, error)

// FetchAll calls f.
func (f SourceFunc) FetchAll(ctx context.Context) ([]User, error) {
	return f(ctx)
}
