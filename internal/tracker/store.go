package tracker

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// entry bundles everything keyed by one fingerprint: the group aggregate,
// its rate-limit window and its alert state. The group is nil until the
// first event passes both gates (rate limiting can see a fingerprint
// before a group exists). Everything here is guarded by the shard lock, so
// upserts and sweeps for one fingerprint serialize while distinct
// fingerprints on other shards proceed in parallel.
type entry struct {
	group       *group
	rl          windowCounter
	alerts      alertState
	lastTouched time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// groupStore is the authoritative fingerprint → entry table, split into a
// fixed number of lock-protected shards so hot groups under an error storm
// do not serialize unrelated groups.
type groupStore struct {
	shards [shardCount]*shard
}

func newGroupStore() *groupStore {
	s := &groupStore{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *groupStore) shardFor(fp string) *shard {
	h := fnv.New32a()
	h.Write([]byte(fp))
	return s.shards[h.Sum32()%shardCount]
}

// withEntry runs fn with the entry for fp under the shard lock, creating
// the entry if absent.
func (s *groupStore) withEntry(fp string, fn func(*entry)) {
	sh := s.shardFor(fp)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[fp]
	if !ok {
		e = &entry{}
		sh.entries[fp] = e
	}
	fn(e)
}

// forEachGroup calls fn for every live group, shard by shard, under each
// shard's lock. fn must not block; it receives the mutable group and must
// copy what it keeps.
func (s *groupStore) forEachGroup(fn func(*group)) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.entries {
			if e.group != nil {
				fn(e.group)
			}
		}
		sh.mu.Unlock()
	}
}

// sweep removes every entry idle since before the cutoff and returns how
// many groups were evicted. Groupless entries (fingerprints only ever seen
// by the rate limiter) are dropped too but not counted.
func (s *groupStore) sweep(cutoff time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for fp, e := range sh.entries {
			last := e.lastTouched
			if e.group != nil && e.group.lastSeen.After(last) {
				last = e.group.lastSeen
			}
			if last.Before(cutoff) {
				if e.group != nil {
					removed++
				}
				delete(sh.entries, fp)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// clear drops all entries and returns how many groups existed.
func (s *groupStore) clear() int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.entries {
			if e.group != nil {
				removed++
			}
		}
		sh.entries = make(map[string]*entry)
		sh.mu.Unlock()
	}
	return removed
}
