package seen

import (
	"container/list"
	"context"
	"sync"
)

const (
	defaultMaxPerViewer = 500
	defaultMaxViewers   = 100_000
)

// node is one entry in a viewer's insertion-ordered list.
type node struct {
	id   string
	next *node
}

func (n *node) reset() {
	n.id = ""
	n.next = nil
}

// viewerSet keeps ids in insertion order: head is oldest, tail newest.
type viewerSet struct {
	index map[string]*node
	head  *node
	tail  *node
	// elem is this viewer's place in the store's recency list.
	elem *list.Element
}

// MemoryStore is a process-local Store with bounded per-viewer sets. Past
// maxViewers, the viewer written least recently is forgotten.
type MemoryStore struct {
	mu           sync.RWMutex
	viewers      map[string]*viewerSet
	recency      *list.List // viewer ids, most recently written at the front
	maxPerViewer int
	maxViewers   int
	nodePool     sync.Pool
}

// NewMemoryStore creates an in-memory seen store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		viewers:      make(map[string]*viewerSet),
		recency:      list.New(),
		maxPerViewer: defaultMaxPerViewer,
		maxViewers:   defaultMaxViewers,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nodePool = sync.Pool{
		New: func() any { return &node{} },
	}
	return s
}

// Seen returns a copy of viewerID's set.
func (s *MemoryStore) Seen(_ context.Context, viewerID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs, ok := s.viewers[viewerID]
	if !ok {
		return map[string]struct{}{}, nil
	}
	out := make(map[string]struct{}, len(vs.index))
	for id := range vs.index {
		out[id] = struct{}{}
	}
	return out, nil
}

// Record appends ids to viewerID's set, evicting the oldest past the bound.
func (s *MemoryStore) Record(_ context.Context, viewerID string, ids ...string) error {
	if viewerID == "" {
		return ErrNoViewer
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.viewers[viewerID]
	if ok {
		s.recency.MoveToFront(vs.elem)
	} else {
		if s.maxViewers > 0 && len(s.viewers) >= s.maxViewers {
			s.evictViewer()
		}
		vs = &viewerSet{index: make(map[string]*node)}
		vs.elem = s.recency.PushFront(viewerID)
		s.viewers[viewerID] = vs
	}

	for _, id := range ids {
		if _, exists := vs.index[id]; exists || id == "" {
			continue
		}
		if s.maxPerViewer > 0 && len(vs.index) >= s.maxPerViewer {
			s.evictOldest(vs)
		}

		n := s.nodePool.Get().(*node) //nolint:forcetypeassert // pool only holds *node
		n.id = id
		if vs.tail == nil {
			vs.head = n
		} else {
			vs.tail.next = n
		}
		vs.tail = n
		vs.index[id] = n
	}
	return nil
}

// evictOldest drops the head entry. Must be called with s.mu held.
func (s *MemoryStore) evictOldest(vs *viewerSet) {
	n := vs.head
	if n == nil {
		return
	}
	vs.head = n.next
	if vs.head == nil {
		vs.tail = nil
	}
	delete(vs.index, n.id)
	n.reset()
	s.nodePool.Put(n)
}

// evictViewer forgets the least recently written viewer. Must be called
// with s.mu held.
func (s *MemoryStore) evictViewer() {
	back := s.recency.Back()
	if back == nil {
		return
	}
	viewerID := s.recency.Remove(back).(string) //nolint:forcetypeassert // list only holds viewer ids
	vs := s.viewers[viewerID]
	delete(s.viewers, viewerID)
	for vs.head != nil {
		s.evictOldest(vs)
	}
}

// Viewers returns how many viewers are tracked.
func (s *MemoryStore) Viewers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// Size returns how many ids are held for viewerID.
func (s *MemoryStore) Size(viewerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if vs, ok := s.viewers[viewerID]; ok {
		return len(vs.index)
	}
	return 0
}
