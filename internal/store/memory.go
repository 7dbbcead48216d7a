package store

import (
	"context"
	"sync"

	"scrumbot/internal/models"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state State
	subs  map[chan State]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[chan State]struct{})}
}

func (m *MemoryStore) Get(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state), nil
}

func (m *MemoryStore) SetSidebarOpen(_ context.Context, open bool) (State, error) {
	return m.update(func(s *State) { s.SidebarOpen = open }), nil
}

func (m *MemoryStore) ToggleSidebar(_ context.Context) (State, error) {
	return m.update(func(s *State) { s.SidebarOpen = !s.SidebarOpen }), nil
}

func (m *MemoryStore) Login(_ context.Context, user models.User) (State, error) {
	if err := validateUser(user); err != nil {
		return State{}, err
	}
	return m.update(func(s *State) {
		s.LoggedIn = true
		s.User = &user
	}), nil
}

func (m *MemoryStore) Logout(_ context.Context) (State, error) {
	return m.update(func(s *State) {
		s.LoggedIn = false
		s.User = nil
	}), nil
}

func (m *MemoryStore) Subscribe(ctx context.Context) (<-chan State, error) {
	ch := make(chan State, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- copyState(m.state)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) update(fn func(*State)) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
	for ch := range m.subs {
		offer(ch, copyState(m.state))
	}
	return copyState(m.state)
}

func copyState(s State) State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
