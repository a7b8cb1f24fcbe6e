// Package cache stores computed layouts keyed by the graph that produced them.
//
// The ELK server is deterministic for a given graph and server version, so a
// layout can be reused whenever the same graph is submitted again. The HTTP
// API uses this package; the layout client itself never caches.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory, for single hosts
//   - [RedisCache]: shared cache for several API instances
//   - [NullCache]: disables caching
//
// # Keys
//
// A [Keyer] turns a graph hash and the settings that influence the result
// into a cache key:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.LayoutKey(cache.Hash(graphJSON), cache.LayoutKeyOpts{EngineVersion: "0.2.0"})
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the cached bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts are the settings besides the graph that change a layout.
type LayoutKeyOpts struct {
	EngineVersion string `json:"engine_version"`
	Algorithm     string `json:"algorithm,omitempty"`
}

// RenderKeyOpts select a rendering of a layout.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Labels bool   `json:"labels"`
}

// Keyer builds cache keys.
type Keyer interface {
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	RenderKey(layoutHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes the key components under a fixed prefix per kind.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// RenderKey returns "render:<sha256>".
func (DefaultKeyer) RenderKey(layoutHash string, opts RenderKeyOpts) string {
	return hashKey("render", layoutHash, opts)
}
