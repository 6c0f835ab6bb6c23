package graph

import "sync"

// MemorySaver is an in-memory checkpoint store keyed by thread ID. State
// survives across turns of a conversation but not across process restarts.
// Updates to the same thread are serialized: at most one turn is in flight
// per thread at a time. Distinct threads do not block each other.
type MemorySaver[S any] struct {
	mu      sync.Mutex
	threads map[string]*threadSlot[S]
}

type threadSlot[S any] struct {
	mu    sync.Mutex
	state S
	set   bool
}

// NewMemorySaver creates an empty checkpoint store.
func NewMemorySaver[S any]() *MemorySaver[S] {
	return &MemorySaver[S]{threads: make(map[string]*threadSlot[S])}
}

func (m *MemorySaver[S]) slot(threadID string) *threadSlot[S] {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.threads[threadID]
	if !ok {
		s = &threadSlot[S]{}
		m.threads[threadID] = s
	}
	return s
}

// Update runs fn under the thread's lock, passing the checkpointed state and
// whether one exists. The state fn returns is committed only when fn succeeds;
// on error the previous checkpoint is kept, so a failed turn never corrupts
// committed state.
func (m *MemorySaver[S]) Update(threadID string, fn func(state S, found bool) (S, error)) error {
	s := m.slot(threadID)
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state, s.set)
	if err != nil {
		return err
	}
	s.state = next
	s.set = true
	return nil
}

// Get returns the checkpointed state for a thread, if any.
func (m *MemorySaver[S]) Get(threadID string) (S, bool) {
	s := m.slot(threadID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.set
}

// Delete discards a thread's checkpoint.
func (m *MemorySaver[S]) Delete(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, threadID)
}
