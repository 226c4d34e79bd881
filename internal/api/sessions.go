package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/common/logger"
	"admissions-wizard/internal/wizard/attachments"
	"admissions-wizard/internal/wizard/controller"
	"admissions-wizard/internal/wizard/coordinator"
)

type ManagerConfig struct {
	// IdleTTL closes sessions untouched for longer; zero keeps them forever.
	IdleTTL                     time.Duration
	MaxUploadBytes              int64
	AllowDuplicateVisaCountries bool
	Now                         func() time.Time
}

type ManagerDeps struct {
	FlagStore coordinator.FlagStore
	Recorder  controller.Recorder
	// Active tracks the number of open sessions. Optional.
	Active prometheus.Gauge
	IDs    attachments.IDGenerator
}

type session struct {
	mu       sync.Mutex
	ctrl     *controller.Controller
	lastSeen time.Time
}

// Manager owns the open wizards. Each wizard is guarded by its own mutex, so
// requests for different sessions never wait on each other.
type Manager struct {
	config      ManagerConfig
	deps        ManagerDeps
	coordinator *coordinator.Coordinator
	store       *attachments.Store
	logger      logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(config ManagerConfig, deps ManagerDeps, log logger.Logger) *Manager {
	if config.Now == nil {
		config.Now = time.Now
	}
	if deps.FlagStore == nil {
		deps.FlagStore = coordinator.NewMemoryFlagStore()
	}
	log = log.WithFields(map[string]interface{}{"component": "sessions"})
	return &Manager{
		config:      config,
		deps:        deps,
		coordinator: coordinator.New(log),
		store:       attachments.NewStore(deps.IDs, config.MaxUploadBytes, log),
		logger:      log,
		sessions:    make(map[string]*session),
	}
}

// Create opens a wizard for programID and returns its session id with the
// initial view.
func (m *Manager) Create(programID string) (string, controller.StepView) {
	id := uuid.NewString()
	ctrl := controller.New(controller.Config{
		ProgramID:                   programID,
		AllowDuplicateVisaCountries: m.config.AllowDuplicateVisaCountries,
		Now:                         m.config.Now,
	}, controller.Deps{
		Coordinator: m.coordinator,
		Session:     coordinator.NewSession(id, m.deps.FlagStore, m.logger),
		Attachments: m.store,
		Recorder:    m.deps.Recorder,
	}, m.logger)

	m.mu.Lock()
	m.sessions[id] = &session{ctrl: ctrl, lastSeen: m.config.Now()}
	n := len(m.sessions)
	m.mu.Unlock()

	m.setActive(n)
	m.logger.Info("wizard session opened", map[string]interface{}{
		"sessionId": id,
		"programId": programID,
	})
	return id, ctrl.View()
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return s, nil
}

// Do runs fn with exclusive access to the session's controller.
func (m *Manager) Do(id string, fn func(*controller.Controller) error) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = m.config.Now()
	return fn(s.ctrl)
}

// LoadProgram fetches the session's program without holding the session lock
// during the lookup. A result that arrives after the wizard moved on is
// dropped by the controller.
func (m *Manager) LoadProgram(ctx context.Context, id string, fetcher controller.ProgramFetcher) error {
	var (
		token     controller.FetchToken
		programID string
		needed    bool
	)
	if err := m.Do(id, func(c *controller.Controller) error {
		if c.Closed() {
			return controller.ErrClosed
		}
		token, programID, needed = c.StartProgramFetch()
		return nil
	}); err != nil {
		return err
	}
	if !needed {
		return nil
	}

	program, fetchErr := fetcher.FetchProgramByID(ctx, programID)

	if err := m.Do(id, func(c *controller.Controller) error {
		c.ResolveProgramFetch(token, program, fetchErr)
		return nil
	}); err != nil {
		return err
	}
	return fetchErr
}

// Close ends one session. Closing an unknown session is an error.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return apperrors.NewSessionNotFoundError(id)
	}
	m.setActive(n)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Close(ctx)
}

// Sweep closes sessions idle for longer than IdleTTL and returns how many
// were closed.
func (m *Manager) Sweep(ctx context.Context) int {
	if m.config.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.config.Now().Add(-m.config.IdleTTL)

	var expired []string
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.mu.TryLock() {
			if s.lastSeen.Before(cutoff) {
				expired = append(expired, id)
			}
			s.mu.Unlock()
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.Close(ctx, id); err != nil {
			m.logger.Warn("failed to close idle session", map[string]interface{}{
				"sessionId": id,
				"error":     err.Error(),
			})
		}
	}
	if len(expired) > 0 {
		m.logger.Info("idle sessions closed", map[string]interface{}{"count": len(expired)})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.config.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// CloseAll ends every open session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Close(ctx, id)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) setActive(n int) {
	if m.deps.Active != nil {
		m.deps.Active.Set(float64(n))
	}
}
