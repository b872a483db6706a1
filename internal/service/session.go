package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/store"

	log "github.com/sirupsen/logrus"
)

// Session is one signed-in user's synchronized view of the backend. It owns a
// Store, fills it with an initial load, keeps it current from the change
// feeds and routes the user's writes through optimistic local application.
type Session struct {
	actor   domain.Profile
	gateway repository.Gateway
	store   *store.Store
	metrics *metrics.Manager
	now     func() time.Time

	mu     sync.Mutex
	unsubs []repository.Unsubscribe
	closed bool
}

func NewSession(actor domain.Profile, gateway repository.Gateway, m *metrics.Manager) *Session {
	return &Session{
		actor:   actor,
		gateway: gateway,
		store:   store.New(m),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Actor returns the session owner's profile, as last seen by the store.
func (s *Session) Actor() domain.Profile {
	if p, ok := s.store.Profiles.Get(s.actor.ID); ok {
		return p
	}
	return s.actor
}

func (s *Session) Store() *store.Store {
	return s.store
}

type tableQuery struct {
	table  repository.Table
	filter repository.Filter
	order  *repository.Order
}

// queries lists what the session loads and subscribes to, by role.
func (s *Session) queries() []tableQuery {
	me := s.actor.ID
	byDate := &repository.Order{Field: "date", Descending: true}
	byLogged := &repository.Order{Field: "date_logged", Descending: true}
	byTime := &repository.Order{Field: "timestamp"}
	messages := repository.Either("sender_id", "receiver_id", me)

	if s.actor.Role == domain.RoleAthlete {
		qs := []tableQuery{
			{table: repository.TableProfiles, filter: repository.Filter{AnyOf: []map[string]any{
				{repository.FieldID: me},
				{"role": string(domain.RoleCoach)},
				{"role": string(domain.RoleTrainer)},
			}}},
			{table: repository.TableInjuries, filter: repository.Eq("athlete_id", me), order: byLogged},
			{table: repository.TableTrainingLogs, filter: repository.Eq("athlete_id", me), order: byDate},
			{table: repository.TableMessages, filter: messages, order: byTime},
		}
		if s.actor.TeamID != "" {
			qs = append(qs, tableQuery{table: repository.TableTeams, filter: repository.Eq(repository.FieldID, s.actor.TeamID)})
		}
		return qs
	}

	teams := repository.Filter{}
	if s.actor.Role == domain.RoleCoach {
		teams = repository.Eq("coach_id", me)
	}
	return []tableQuery{
		{table: repository.TableProfiles},
		{table: repository.TableInjuries, order: byLogged},
		{table: repository.TableTrainingLogs, order: byDate},
		{table: repository.TableMessages, filter: messages, order: byTime},
		{table: repository.TableTeams, filter: teams},
	}
}

// Load runs the initial queries. A failed query leaves its collection empty
// and is logged; it never fails the session.
func (s *Session) Load(ctx context.Context) {
	for _, q := range s.queries() {
		rows, err := s.gateway.Query(ctx, q.table, q.filter, q.order)
		if err != nil {
			s.gatewayFailed(q.table, "query", err)
			continue
		}
		n := s.store.LoadRows(q.table, rows)
		log.WithFields(log.Fields{"user": s.actor.ID, "table": q.table}).Debugf("loaded %d/%d rows", n, len(rows))
	}
}

// Start subscribes to the change feed of every table the session loaded.
// Subscriptions live until Close or until ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	for _, q := range s.queries() {
		unsub, err := s.gateway.Subscribe(ctx, q.table, repository.EventFilter{Match: q.filter}, s.onChange)
		if err != nil {
			s.gatewayFailed(q.table, "subscribe", err)
			for _, u := range s.unsubs {
				u()
			}
			s.unsubs = nil
			return fmt.Errorf("subscribe %s: %w", q.table, err)
		}
		s.unsubs = append(s.unsubs, unsub)
	}
	return nil
}

func (s *Session) onChange(ev repository.ChangeEvent) {
	outcome, err := s.store.ApplyChange(ev)
	if err != nil {
		// already logged and counted by the store
		return
	}
	log.WithFields(log.Fields{
		"user":    s.actor.ID,
		"table":   ev.Table,
		"id":      repository.RowID(ev.Row),
		"outcome": outcome,
	}).Trace("change applied")
}

// Close cancels every subscription and waits for their handlers to return.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

func (s *Session) gatewayFailed(table repository.Table, op string, err error) {
	log.WithFields(log.Fields{"user": s.actor.ID, "table": table, "op": op}).Errorf("gateway call failed: %s", err)
	if s.metrics != nil {
		s.metrics.CounterGatewayFailures.WithLabelValues(string(table), op).Inc()
	}
}
