package keypool

import (
	"errors"
	"strings"
	"sync/atomic"
)

// ErrEmptyPool is returned when no credentials are configured.
var ErrEmptyPool = errors.New("no API keys configured; set GEMINI_API_KEYS")

// Pool is an ordered set of interchangeable API keys with a shared
// round-robin cursor. The cursor survives across requests, so successive
// callers continue rotation where the previous one left off.
//
// Cursor access is atomic. Concurrent callers may still rotate past a key
// another in-flight call has not failed on yet; that only changes which key
// the next attempt uses.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// New builds a pool from keys. Order is preserved.
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyPool
	}
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &Pool{keys: cp}, nil
}

// Current returns the key under the cursor.
func (p *Pool) Current() (string, error) {
	if p == nil || len(p.keys) == 0 {
		return "", ErrEmptyPool
	}
	idx := p.cursor.Load() % uint64(len(p.keys))
	return p.keys[idx], nil
}

// Rotate advances the cursor by one, wrapping after the last key.
func (p *Pool) Rotate() {
	if p == nil || len(p.keys) == 0 {
		return
	}
	n := uint64(len(p.keys))
	for {
		cur := p.cursor.Load()
		if p.cursor.CompareAndSwap(cur, (cur+1)%n) {
			return
		}
	}
}

// Len reports the number of keys in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Cursor reports the index Current would read.
func (p *Pool) Cursor() int {
	if p == nil || len(p.keys) == 0 {
		return 0
	}
	return int(p.cursor.Load() % uint64(len(p.keys)))
}

// Masked returns the keys with everything but the last four characters hidden.
func (p *Pool) Masked() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	for i, k := range p.keys {
		out[i] = Mask(k)
	}
	return out
}

// Mask hides all but the last four characters of a key.
func Mask(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}
