// Package store holds the UI session shared by the board and the CLI:
// whether the sidebar is open and who is logged in.
package store

import (
	"context"
	"fmt"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/models"
)

// State is a snapshot of the session. User is nil while logged out.
type State struct {
	SidebarOpen bool         `json:"sidebar_open"`
	LoggedIn    bool         `json:"logged_in"`
	User        *models.User `json:"user,omitempty"`
}

// EmployeeID returns the logged-in user's employee id, or fallback.
func (s State) EmployeeID(fallback int) int {
	if s.LoggedIn && s.User != nil && s.User.EmployeeID > 0 {
		return s.User.EmployeeID
	}
	return fallback
}

// Store reads and writes the session. Every write returns the new state
// and is delivered to all subscribers.
type Store interface {
	Get(ctx context.Context) (State, error)
	SetSidebarOpen(ctx context.Context, open bool) (State, error)
	ToggleSidebar(ctx context.Context) (State, error)
	Login(ctx context.Context, user models.User) (State, error)
	Logout(ctx context.Context) (State, error)
	// Subscribe delivers the current state, then the state after every
	// write. The channel is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan State, error)
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.SessionConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.SessionBackendMemory:
		return NewMemoryStore(), nil
	case config.SessionBackendRedis:
		return NewRedisStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

func validateUser(user models.User) error {
	if user.EmployeeID <= 0 {
		return errors.NewValidationError("Employee id must be positive.")
	}
	return nil
}

// offer replaces any undelivered state in ch with s. ch must have capacity 1
// and a single sender.
func offer(ch chan State, s State) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}
