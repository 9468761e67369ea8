// Package conformance loads and serves the rdapConformance list: the
// ordered set of protocol extension identifiers this server supports,
// attached to every response envelope.
//
// The list is loaded exactly once at process startup from a backing
// store and is immutable afterwards, so reads require no locking.
package conformance

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyList indicates that the backing store returned no
// conformance identifiers.
var ErrEmptyList = errors.New("conformance list is empty")

// Source loads the conformance list from a backing store.
type Source interface {
	Load(ctx context.Context) ([]string, error)
}

// Provider serves the conformance list loaded at startup. The zero
// value is not usable; construct with NewProvider.
type Provider struct {
	list []string
}

// NewProvider loads the conformance list from src exactly once and
// returns a provider serving the immutable result.
func NewProvider(ctx context.Context, src Source) (*Provider, error) {
	list, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conformance list: %w", err)
	}
	if len(list) == 0 {
		return nil, ErrEmptyList
	}

	owned := make([]string, len(list))
	copy(owned, list)

	return &Provider{list: owned}, nil
}

// List returns the conformance identifiers in load order. Callers must
// not mutate the returned slice.
func (p *Provider) List() []string {
	return p.list
}

// StaticSource is a Source backed by a fixed in-memory list, used in
// tests and as a fallback when no backing store is configured.
type StaticSource []string

// Load returns the static list.
func (s StaticSource) Load(_ context.Context) ([]string, error) {
	return s, nil
}

// DefaultList is the baseline conformance list served when no backing
// store is configured.
var DefaultList = StaticSource{"rdap_level_0"}
