package snapshots

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockStripes = 64

// keyLocks serializes writers per (account_id, date) key using a fixed set of stripes.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// lock acquires the stripes of all keys in ascending order and returns the unlock function.
func (l *keyLocks) lock(keys ...string) func() {
	seen := make(map[int]bool, len(keys))
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		s := l.stripe(k)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	sort.Ints(idx)

	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}
