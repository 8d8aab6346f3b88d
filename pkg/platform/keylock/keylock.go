// Package keylock serializes work per string key using a fixed pool of
// mutexes. Distinct keys may share a shard; equal keys always do.
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 128

type Locks struct {
	shards []sync.Mutex
}

func New(shards int) *Locks {
	if shards <= 0 {
		shards = defaultShards
	}
	return &Locks{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the shard for key and returns its release func.
func (l *Locks) Lock(key string) func() {
	m := &l.shards[l.index(key)]
	m.Lock()
	return m.Unlock
}

func (l *Locks) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.shards)))
}
