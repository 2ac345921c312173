// Package keyedmutex provides a sharded set of mutexes keyed by a uint64,
// used to serialize concurrent writers to the same logical resource without
// forcing all writers in the system through a single global lock.
//
// A fixed number of shards, each with its own mutex, is selected by a cheap
// hash of the key. Two different keys that happen to hash to the same
// shard will contend unnecessarily but never incorrectly: correctness only
// requires that the same key always maps to the same shard.
package keyedmutex

import "sync"

const defaultShardCount = 64

// Keyed is a sharded collection of mutexes, one lock per key modulo the
// shard count.
type Keyed struct {
	shards []sync.Mutex
}

// New returns a Keyed with the default number of shards.
func New() *Keyed {
	return &Keyed{shards: make([]sync.Mutex, defaultShardCount)}
}

// Lock locks the shard for key, blocking until it is available.
func (k *Keyed) Lock(key uint64) {
	k.shards[key%uint64(len(k.shards))].Lock()
}

// Unlock unlocks the shard for key.
func (k *Keyed) Unlock(key uint64) {
	k.shards[key%uint64(len(k.shards))].Unlock()
}

// WithLock runs fn while holding the shard lock for key.
func (k *Keyed) WithLock(key uint64, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}
