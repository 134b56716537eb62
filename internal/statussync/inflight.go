package statussync

import "sync"

// inflightSet tracks which equipment ids currently have a synchronization in
// flight. It provides mutual exclusion per id within this process only; a
// second process instance or a concurrently running reconciler gets no
// guarantee from it.
type inflightSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{ids: make(map[string]struct{})}
}

// acquire marks id as in flight. It reports false if the id is already held;
// it never blocks.
func (f *inflightSet) acquire(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.ids[id]; held {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inflightSet) release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
