// Package auth implements the login attempt state machine: credential
// verification against a store snapshot, per-username failure counters,
// and the lockout threshold.
package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/termgate/termgate/internal/model"
	"github.com/termgate/termgate/internal/store"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. The two are deliberately indistinguishable so a caller
	// cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLocked is returned once a username has exhausted its attempts.
	ErrLocked = errors.New("account locked")
)

// DefaultMaxAttempts is the lockout threshold used when the config does
// not override it.
const DefaultMaxAttempts = 3

// State is the terminal state of a single login attempt.
type State int

const (
	StateAuthenticated State = iota
	StateRejected
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Outcome reports the result of one Attempt call. Role is set when the
// attempt authenticated; Remaining is the number of attempts left before
// lockout when it was rejected (zero means the next failure locks).
type Outcome struct {
	State     State
	Role      model.Role
	Remaining int
}

// AuditLogger receives one event per login outcome and per logout. Calls
// are fire-and-forget; the session never consults a return value.
type AuditLogger interface {
	Log(eventType, username, status, detail string)
}

// Session holds one user's login flow: a credential snapshot loaded at
// construction and in-memory failure counters that live for the process
// lifetime only. A Session is not safe for concurrent use; the whole
// program is single-user and synchronous.
type Session struct {
	users       map[string]model.User
	store       *store.Store
	attempts    map[string]int
	maxAttempts int
	audit       AuditLogger
	logger      *slog.Logger
}

// NewSession loads a snapshot from st and returns a session enforcing
// maxAttempts (DefaultMaxAttempts when <= 0). audit may be nil.
func NewSession(st *store.Store, maxAttempts int, audit AuditLogger, logger *slog.Logger) (*Session, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	users, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load credential snapshot: %w", err)
	}
	return &Session{
		users:       users,
		store:       st,
		attempts:    map[string]int{},
		maxAttempts: maxAttempts,
		audit:       audit,
		logger:      logger,
	}, nil
}

// Reload refreshes the credential snapshot after the store has been
// mutated (a created user, a changed password). Failure counters are kept.
func (s *Session) Reload() error {
	users, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("reload credential snapshot: %w", err)
	}
	s.users = users
	return nil
}

// IsLocked reports whether username has reached the lockout threshold.
func (s *Session) IsLocked(username string) bool {
	return s.attempts[username] >= s.maxAttempts
}

// Attempt runs one verification of username/password.
//
// A locked username short-circuits: the store is not consulted, no
// attempt is consumed, no audit event is emitted, and a correct password
// does not clear the lock. A match clears the failure counter, stamps
// last-login, and returns the record's role. A mismatch (including an
// unknown username) increments the counter and reports the remaining
// attempts alongside ErrInvalidCredentials.
func (s *Session) Attempt(username, password string) (Outcome, error) {
	if s.IsLocked(username) {
		return Outcome{State: StateLocked}, ErrLocked
	}

	u, ok := s.store.Verify(s.users, username, password)
	if !ok {
		s.attempts[username]++
		count := s.attempts[username]
		remaining := s.maxAttempts - count

		if s.audit != nil {
			s.audit.Log("LOGIN", username, "FAILED", fmt.Sprintf("Attempt %d", count))
		}
		s.logger.Debug("login rejected", "username", username, "attempt", count)
		return Outcome{State: StateRejected, Remaining: remaining}, ErrInvalidCredentials
	}

	delete(s.attempts, username)
	if err := s.store.UpdateLastLogin(username); err != nil {
		// The login itself succeeded; a failed stamp is logged, not fatal.
		s.logger.Warn("failed to stamp last login", "username", username, "error", err)
	}

	if s.audit != nil {
		s.audit.Log("LOGIN", username, "SUCCESS", "")
	}
	s.logger.Debug("login authenticated", "username", username, "role", string(u.Level))
	return Outcome{State: StateAuthenticated, Role: u.Level}, nil
}

// Logout records the end of an authenticated session.
func (s *Session) Logout(username string) {
	if s.audit != nil {
		s.audit.Log("LOGOUT", username, "SUCCESS", "")
	}
}
