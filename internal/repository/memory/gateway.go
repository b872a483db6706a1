// Package memory provides an in-process repository.Gateway. Change events are
// delivered asynchronously, one goroutine per subscription, in write order.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"athletix/tracker/internal/repository"

	"github.com/google/uuid"
)

type Gateway struct {
	mu            sync.Mutex
	tables        map[repository.Table][]repository.Row
	subs          map[repository.Table]map[int]*subscriber
	nextSubID     int
	writeFailures map[repository.Table]error
	queryFailures map[repository.Table]error
}

var _ repository.Gateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		tables:        make(map[repository.Table][]repository.Row),
		subs:          make(map[repository.Table]map[int]*subscriber),
		writeFailures: make(map[repository.Table]error),
		queryFailures: make(map[repository.Table]error),
	}
}

// FailWrites makes every Insert and Update on table return err until it is
// called again with a nil error.
func (g *Gateway) FailWrites(table repository.Table, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.writeFailures, table)
		return
	}
	g.writeFailures[table] = err
}

// FailQueries makes every Query on table return err until cleared with nil.
func (g *Gateway) FailQueries(table repository.Table, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.queryFailures, table)
		return
	}
	g.queryFailures[table] = err
}

// Seed stores rows as they are, without emitting change events.
func (g *Gateway) Seed(table repository.Table, rows ...repository.Row) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, row := range rows {
		c, err := repository.CloneRow(row)
		if err != nil {
			return err
		}
		if repository.RowID(c) == "" {
			c[repository.FieldID] = uuid.NewString()
		}
		g.tables[table] = append(g.tables[table], c)
	}
	return nil
}

// Publish delivers an event to the table's subscribers without touching
// stored data. It simulates feed traffic the gateway did not originate, such
// as redelivered or malformed rows.
func (g *Gateway) Publish(table repository.Table, typ repository.EventType, row repository.Row) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.publishLocked(table, typ, row)
}

func (g *Gateway) Query(ctx context.Context, table repository.Table, filter repository.Filter, order *repository.Order) ([]repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.queryFailures[table]; err != nil {
		return nil, err
	}

	var out []repository.Row
	for _, row := range g.tables[table] {
		if !filter.Matches(row) {
			continue
		}
		c, err := repository.CloneRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			c := repository.Compare(out[i][order.Field], out[j][order.Field])
			if order.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

func (g *Gateway) Insert(ctx context.Context, table repository.Table, row repository.Row) (repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.writeFailures[table]; err != nil {
		return nil, err
	}

	stored, err := repository.CloneRow(row)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w: %v", table, repository.ErrInsertFailed, err)
	}
	id := repository.RowID(stored)
	if id == "" {
		id = uuid.NewString()
		stored[repository.FieldID] = id
	}
	if g.indexOfLocked(table, id) >= 0 {
		return nil, fmt.Errorf("insert %s: %w", table, repository.ErrDuplicateKey)
	}
	g.tables[table] = append(g.tables[table], stored)
	g.publishLocked(table, repository.EventInsert, stored)

	return repository.CloneRow(stored)
}

func (g *Gateway) Update(ctx context.Context, table repository.Table, id string, patch repository.Row) (repository.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.writeFailures[table]; err != nil {
		return nil, err
	}

	idx := g.indexOfLocked(table, id)
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	p, err := repository.CloneRow(patch)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w: %v", table, id, repository.ErrUpdateFailed, err)
	}
	stored := g.tables[table][idx]
	for k, v := range p {
		if k == repository.FieldID {
			continue
		}
		stored[k] = v
	}
	g.publishLocked(table, repository.EventUpdate, stored)

	return repository.CloneRow(stored)
}

func (g *Gateway) Subscribe(ctx context.Context, table repository.Table, filter repository.EventFilter, handler repository.Handler) (repository.Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &subscriber{
		filter:  filter,
		handler: handler,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	if g.subs[table] == nil {
		g.subs[table] = make(map[int]*subscriber)
	}
	g.subs[table][id] = s
	g.mu.Unlock()

	go s.run(ctx)

	return func() {
		s.stop()
		g.mu.Lock()
		delete(g.subs[table], id)
		g.mu.Unlock()
	}, nil
}

// Close stops every subscription.
func (g *Gateway) Close() {
	g.mu.Lock()
	var all []*subscriber
	for table, subs := range g.subs {
		for _, s := range subs {
			all = append(all, s)
		}
		delete(g.subs, table)
	}
	g.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
}

// Subscribers returns how many live subscriptions a table has.
func (g *Gateway) Subscribers(table repository.Table) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs[table])
}

func (g *Gateway) indexOfLocked(table repository.Table, id string) int {
	for i, row := range g.tables[table] {
		if repository.RowID(row) == id {
			return i
		}
	}
	return -1
}

func (g *Gateway) publishLocked(table repository.Table, typ repository.EventType, row repository.Row) {
	for _, s := range g.subs[table] {
		c, err := repository.CloneRow(row)
		if err != nil {
			continue
		}
		ev := repository.ChangeEvent{Type: typ, Table: table, Row: c}
		if s.filter.Accepts(ev) {
			s.push(ev)
		}
	}
}

type subscriber struct {
	filter  repository.EventFilter
	handler repository.Handler

	mu    sync.Mutex
	queue []repository.ChangeEvent

	wake     chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (s *subscriber) push(ev repository.ChangeEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (repository.ChangeEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return repository.ChangeEvent{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscriber) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-s.wake:
		}
		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			select {
			case <-ctx.Done():
				return
			case <-s.quit:
				return
			default:
			}
			s.handler(ev)
		}
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}
