package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"athletix/tracker/internal/config"
	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"

	log "github.com/sirupsen/logrus"
)

type managedSession struct {
	session  *Session
	refs     int
	lastUsed time.Time
	ready    chan struct{}
	err      error
	cancel   context.CancelFunc
}

// SessionManager keeps one live Session per signed-in user, shared by all of
// that user's requests and websocket connections. Sessions nobody holds are
// closed once idle for longer than the configured TTL.
type SessionManager struct {
	gateway repository.Gateway
	metrics *metrics.Manager
	cfg     config.SessionConfig
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*managedSession
}

func NewSessionManager(gateway repository.Gateway, m *metrics.Manager, cfg config.SessionConfig) *SessionManager {
	return &SessionManager{
		gateway:  gateway,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*managedSession),
	}
}

// Acquire returns the user's session, loading and starting it on first use.
// The caller must call release when done with it.
func (m *SessionManager) Acquire(ctx context.Context, userID string) (*Session, func(), error) {
	m.mu.Lock()
	ms, ok := m.sessions[userID]
	if ok {
		ms.refs++
		m.mu.Unlock()
		select {
		case <-ms.ready:
		case <-ctx.Done():
			m.release(userID, ms)
			return nil, nil, ctx.Err()
		}
		if ms.err != nil {
			m.release(userID, ms)
			return nil, nil, ms.err
		}
		return ms.session, m.releaseFunc(userID, ms), nil
	}

	ms = &managedSession{refs: 1, ready: make(chan struct{})}
	m.sessions[userID] = ms
	m.mu.Unlock()

	ms.session, ms.cancel, ms.err = m.open(ctx, userID)
	close(ms.ready)
	if ms.err != nil {
		m.mu.Lock()
		if m.sessions[userID] == ms {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return nil, nil, ms.err
	}
	m.updateGauge()
	return ms.session, m.releaseFunc(userID, ms), nil
}

func (m *SessionManager) open(ctx context.Context, userID string) (*Session, context.CancelFunc, error) {
	loadCtx := ctx
	if m.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, m.cfg.LoadTimeout)
		defer cancel()
	}

	actor, err := fetchProfile(loadCtx, m.gateway, userID)
	if err != nil {
		return nil, nil, err
	}

	s := NewSession(actor, m.gateway, m.metrics)
	s.Load(loadCtx)

	// subscriptions outlive the request that opened the session
	subCtx, cancel := context.WithCancel(context.Background())
	if err := s.Start(subCtx); err != nil {
		cancel()
		s.Close()
		return nil, nil, err
	}

	log.WithFields(log.Fields{"user": userID, "role": actor.Role}).Info("session opened")
	return s, cancel, nil
}

func (m *SessionManager) releaseFunc(userID string, ms *managedSession) func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.release(userID, ms) })
	}
}

func (m *SessionManager) release(_ string, ms *managedSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.refs > 0 {
		ms.refs--
	}
	ms.lastUsed = m.now()
}

// Sweep closes sessions that nobody holds and that have been idle longer
// than the TTL. It returns how many were closed.
func (m *SessionManager) Sweep() int {
	now := m.now()
	var idle []*managedSession

	m.mu.Lock()
	for id, ms := range m.sessions {
		select {
		case <-ms.ready:
		default:
			continue
		}
		if ms.refs == 0 && now.Sub(ms.lastUsed) >= m.cfg.IdleTTL {
			delete(m.sessions, id)
			idle = append(idle, ms)
		}
	}
	m.mu.Unlock()

	for _, ms := range idle {
		closeManaged(ms)
	}
	if len(idle) > 0 {
		log.Debugf("closed %d idle sessions", len(idle))
		m.updateGauge()
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is cancelled, then closes every session.
func (m *SessionManager) Run(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := make([]*managedSession, 0, len(m.sessions))
	for id, ms := range m.sessions {
		select {
		case <-ms.ready:
			all = append(all, ms)
			delete(m.sessions, id)
		default:
		}
	}
	m.mu.Unlock()

	for _, ms := range all {
		closeManaged(ms)
	}
	m.updateGauge()
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) updateGauge() {
	if m.metrics == nil {
		return
	}
	m.metrics.GaugeSessions.Set(float64(m.Len()))
}

func closeManaged(ms *managedSession) {
	if ms.session != nil {
		ms.session.Close()
	}
	if ms.cancel != nil {
		ms.cancel()
	}
}

// fetchProfile reads a single profile by id straight from the gateway.
func fetchProfile(ctx context.Context, gw repository.Gateway, userID string) (domain.Profile, error) {
	rows, err := gw.Query(ctx, repository.TableProfiles, repository.Eq(repository.FieldID, userID), nil)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	if len(rows) == 0 {
		return domain.Profile{}, ErrProfileNotFound
	}
	p, err := repository.ProfileFromRow(rows[0])
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return p, nil
}
