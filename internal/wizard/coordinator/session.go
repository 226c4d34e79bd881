// internal/wizard/coordinator/session.go
package coordinator

import (
	"context"

	"admissions-wizard/internal/common/logger"
)

// Session is the per-wizard context handed to the coordinator. It lives from
// wizard mount to End.
type Session struct {
	id     string
	store  FlagStore
	logger logger.Logger
	ended  bool
}

func NewSession(id string, store FlagStore, log logger.Logger) *Session {
	if store == nil {
		store = NewMemoryFlagStore()
	}
	return &Session{
		id:     id,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"sessionId": id}),
	}
}

func (s *Session) ID() string { return s.id }

// FullPassAttempted reports whether a full pass already failed in this
// session. Store errors are logged and read as "not attempted", which keeps
// the strict pass.
func (s *Session) FullPassAttempted(ctx context.Context) bool {
	if s.ended {
		return false
	}
	set, err := s.store.IsSet(ctx, s.id)
	if err != nil {
		s.logger.Warn("flag store read failed", map[string]interface{}{"error": err})
		return false
	}
	return set
}

func (s *Session) MarkFullPassAttempted(ctx context.Context) {
	if s.ended {
		return
	}
	if err := s.store.Set(ctx, s.id); err != nil {
		s.logger.Warn("flag store write failed", map[string]interface{}{"error": err})
	}
}

// End clears the marker. Calling it twice is harmless.
func (s *Session) End(ctx context.Context) error {
	if s.ended {
		return nil
	}
	s.ended = true
	return s.store.Clear(ctx, s.id)
}

func (s *Session) Ended() bool { return s.ended }
