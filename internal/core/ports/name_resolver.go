package ports

import (
	"context"
	"errors"
)

// ErrNameNotFound is returned by NameResolver when the address has no name.
var ErrNameNotFound = errors.New("name not found")

// NameResolver looks up the human-readable name of an address on an external
// naming service.
type NameResolver interface {
	Resolve(ctx context.Context, addr string) (string, error)
}
