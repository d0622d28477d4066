// Package memo is the pure-function memoization boundary that replaces the
// source dashboard's reactive caching decorator. Results are keyed on a
// content hash of the raw inputs plus the run parameters; the transformation
// stages themselves never see the cache.
package memo

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Key is a content fingerprint over inputs and parameters.
type Key uint64

// Fingerprint hashes the given byte parts into a Key. Parts are
// length-framed, so ("ab","c") and ("a","bc") produce different keys.
func Fingerprint(parts ...[]byte) Key {
	d := xxhash.New()
	var frame [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(frame[:], uint64(len(p)))
		d.Write(frame[:])
		d.Write(p)
	}
	return Key(d.Sum64())
}

// Uint64Part encodes an integer parameter as a fingerprint part.
func Uint64Part(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// BoolPart encodes a boolean parameter as a fingerprint part.
func BoolPart(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Cache memoizes values by Key. Safe for concurrent use: the serving layer
// may probe it from multiple handlers even though the pipeline itself is
// single-threaded.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[Key]V
}

// NewCache creates an empty cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[Key]V)}
}

// Get returns the cached value for key, if present.
func (c *Cache[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Do returns the cached value for key, computing and storing it via fn on a
// miss. fn errors are not cached.
func (c *Cache[V]) Do(key Key, fn func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fn()
	if err != nil {
		return v, err
	}

	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v, nil
}

// Len returns the number of memoized entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
