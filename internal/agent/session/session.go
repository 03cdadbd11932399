// Package session holds the single pairing session of the running agent.
package session

import (
	"context"
	"sync"

	"github.com/Diwakar-Gupta/pepper/internal/agent/pairing"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/contextkey"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// State is the externally visible connection state of a session.
type State int

const (
	Idle State = iota
	AwaitingAnswer
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAnswer:
		return "awaiting_answer"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Session is created once per process and shared by reference.
type Session struct {
	code string

	mu    sync.RWMutex
	state State
}

// New creates an idle session for code.
func New(code string) *Session {
	return &Session{code: code}
}

func (s *Session) Code() string { return s.code }

// Display returns the XXXX-XXXX form shown to the user.
func (s *Session) Display() string { return pairing.Format(s.code) }

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Open resets a session to Idle unless it has been closed.
func (s *Session) Open(ctx context.Context) {
	s.SetState(ctx, Idle)
}

// SetState records a transition. A closed session stays closed.
func (s *Session) SetState(ctx context.Context, next State) {
	s.mu.Lock()
	prev := s.state
	if prev == Closed || prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()
	logger.Info(s.Context(ctx), "session state changed", zap.Stringer("from", prev), zap.Stringer("to", next))
}

// Close moves the session to Closed permanently.
func (s *Session) Close(ctx context.Context) {
	s.SetState(ctx, Closed)
}

// Context tags ctx with the session code for logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextkey.SessionCode, s.code)
}
