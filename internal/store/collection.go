// Package store keeps a session's local copy of remote data and reconciles
// optimistic local writes with server confirmations and change-feed events.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"athletix/tracker/internal/repository"

	"github.com/google/uuid"
)

// ProvisionalPrefix marks ids minted locally for records the server has not confirmed.
const ProvisionalPrefix = "tmp_"

var (
	ErrMissingID    = errors.New("record has no id")
	ErrNotFound     = errors.New("record not in store")
	ErrUnknownEvent = errors.New("unknown change event type")
)

// Record is implemented by every entity a Collection can hold.
type Record[T any] interface {
	Key() string
	Ref() string
	WithKey(id string) T
	WithRef(ref string) T
	Clone() T
}

type State int

const (
	StateProvisional State = iota + 1
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// Outcome describes what applying a mutation did to the collection.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeReplaced Outcome = "replaced"
	// OutcomePromoted: a provisional entry was replaced by its confirmed version.
	OutcomePromoted Outcome = "promoted"
	// OutcomeIgnored: a duplicate insert for an id already held.
	OutcomeIgnored Outcome = "duplicate"
)

// Change is passed to watchers after every mutation that altered the collection.
type Change[T any] struct {
	Outcome    Outcome
	Record     T
	State      State
	PreviousID string
}

// IsProvisional reports whether id was minted locally.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

type entry[T any] struct {
	rec   T
	state State
}

type listener[T any] struct {
	id int
	fn func(Change[T])
}

// Collection is an ordered, id-keyed set of records of one entity kind.
// Mutations are serialized; watchers are notified in mutation order, after the
// collection lock is released, so they may read from the collection. Watchers
// must not mutate it.
type Collection[T Record[T]] struct {
	name string

	notifyMu sync.Mutex
	mu       sync.RWMutex
	order    []string
	entries  map[string]*entry[T]
	refs     map[string]string

	listeners    []listener[T]
	nextListener int
}

func NewCollection[T Record[T]](name string) *Collection[T] {
	return &Collection[T]{
		name:    name,
		entries: make(map[string]*entry[T]),
		refs:    make(map[string]string),
	}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) mutate(fn func() (Change[T], bool)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	change, notify := fn()
	ls := append([]listener[T](nil), c.listeners...)
	c.mu.Unlock()

	if !notify {
		return
	}
	for _, l := range ls {
		l.fn(Change[T]{
			Outcome:    change.Outcome,
			Record:     change.Record.Clone(),
			State:      change.State,
			PreviousID: change.PreviousID,
		})
	}
}

// ApplyLocalInsert stores rec as provisional under a fresh temporary id and
// returns the stored record. A correlation ref is minted when rec has none.
// Inserting a ref that is already held returns the held record unchanged.
func (c *Collection[T]) ApplyLocalInsert(rec T) T {
	var out T
	c.mutate(func() (Change[T], bool) {
		ref := rec.Ref()
		if ref == "" {
			ref = uuid.NewString()
			rec = rec.WithRef(ref)
		}
		if id, ok := c.refs[ref]; ok {
			if e, ok := c.entries[id]; ok {
				out = e.rec.Clone()
				return Change[T]{}, false
			}
		}

		id := ProvisionalPrefix + uuid.NewString()
		rec = rec.WithKey(id).Clone()
		c.insertLocked(id, ref, rec, StateProvisional)
		out = rec.Clone()
		return Change[T]{Outcome: OutcomeInserted, Record: rec, State: StateProvisional}, true
	})
	return out
}

// ApplyLocalUpdate overwrites a held record ahead of the server. The entry
// keeps its state and correlation ref.
func (c *Collection[T]) ApplyLocalUpdate(rec T) error {
	var err error
	c.mutate(func() (Change[T], bool) {
		e, ok := c.entries[rec.Key()]
		if !ok {
			err = fmt.Errorf("%s %q: %w", c.name, rec.Key(), ErrNotFound)
			return Change[T]{}, false
		}
		if rec.Ref() == "" {
			rec = rec.WithRef(e.rec.Ref())
		}
		e.rec = rec.Clone()
		return Change[T]{Outcome: OutcomeReplaced, Record: e.rec, State: e.state}, true
	})
	return err
}

// ApplyServerConfirmed applies the authoritative version of a record returned
// by a successful write or an initial load. A provisional entry with the same
// correlation ref is replaced in place; otherwise an entry with the same id is
// overwritten; otherwise the record is inserted.
func (c *Collection[T]) ApplyServerConfirmed(rec T) (Outcome, error) {
	if rec.Key() == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrMissingID)
	}
	var outcome Outcome
	c.mutate(func() (Change[T], bool) {
		id := rec.Key()
		if ch, ok := c.reconcileRefLocked(rec); ok {
			outcome = ch.Outcome
			return ch, true
		}
		if e, ok := c.entries[id]; ok {
			e.rec = rec.Clone()
			e.state = StateConfirmed
			outcome = OutcomeReplaced
			return Change[T]{Outcome: outcome, Record: e.rec, State: StateConfirmed}, true
		}
		c.insertLocked(id, rec.Ref(), rec.Clone(), StateConfirmed)
		outcome = OutcomeInserted
		return Change[T]{Outcome: outcome, Record: rec, State: StateConfirmed}, true
	})
	return outcome, nil
}

// ApplyRemoteEvent applies a change-feed event. An INSERT for an id already
// held is ignored. An UPDATE always overwrites, so concurrent writers resolve
// to whichever event was applied last, and inserts the record when absent.
// Either kind promotes a provisional entry carrying the same correlation ref.
func (c *Collection[T]) ApplyRemoteEvent(typ repository.EventType, rec T) (Outcome, error) {
	if typ != repository.EventInsert && typ != repository.EventUpdate {
		return "", fmt.Errorf("%s: %w: %q", c.name, ErrUnknownEvent, typ)
	}
	if rec.Key() == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrMissingID)
	}
	var outcome Outcome
	c.mutate(func() (Change[T], bool) {
		id := rec.Key()
		if e, ok := c.entries[id]; ok {
			if typ == repository.EventInsert {
				outcome = OutcomeIgnored
				return Change[T]{}, false
			}
			e.rec = rec.Clone()
			e.state = StateConfirmed
			outcome = OutcomeReplaced
			return Change[T]{Outcome: outcome, Record: e.rec, State: StateConfirmed}, true
		}
		if ch, ok := c.reconcileRefLocked(rec); ok {
			outcome = ch.Outcome
			return ch, true
		}
		c.insertLocked(id, rec.Ref(), rec.Clone(), StateConfirmed)
		outcome = OutcomeInserted
		return Change[T]{Outcome: outcome, Record: rec, State: StateConfirmed}, true
	})
	return outcome, nil
}

// reconcileRefLocked replaces a provisional entry holding rec's ref with rec.
func (c *Collection[T]) reconcileRefLocked(rec T) (Change[T], bool) {
	ref := rec.Ref()
	if ref == "" {
		return Change[T]{}, false
	}
	pid, ok := c.refs[ref]
	if !ok || pid == rec.Key() {
		return Change[T]{}, false
	}
	prov, ok := c.entries[pid]
	if !ok || prov.state != StateProvisional {
		return Change[T]{}, false
	}

	id := rec.Key()
	if held, ok := c.entries[id]; ok {
		// the confirmed record arrived without its ref earlier; keep that
		// position and drop the provisional copy
		c.removeLocked(pid)
		held.rec = rec.Clone()
		held.state = StateConfirmed
		c.refs[ref] = id
		return Change[T]{Outcome: OutcomeReplaced, Record: held.rec, State: StateConfirmed, PreviousID: pid}, true
	}

	for i, oid := range c.order {
		if oid == pid {
			c.order[i] = id
			break
		}
	}
	delete(c.entries, pid)
	c.entries[id] = &entry[T]{rec: rec.Clone(), state: StateConfirmed}
	c.refs[ref] = id
	return Change[T]{Outcome: OutcomePromoted, Record: rec, State: StateConfirmed, PreviousID: pid}, true
}

func (c *Collection[T]) insertLocked(id, ref string, rec T, state State) {
	c.order = append(c.order, id)
	c.entries[id] = &entry[T]{rec: rec, state: state}
	if ref != "" {
		c.refs[ref] = id
	}
}

func (c *Collection[T]) removeLocked(id string) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	delete(c.entries, id)
	if ref := e.rec.Ref(); ref != "" && c.refs[ref] == id {
		delete(c.refs, ref)
	}
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	return e.rec.Clone(), true
}

// StateOf returns the reconciliation state of the record with the given id.
func (c *Collection[T]) StateOf(id string) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// List returns clones of the records matching pred, in insertion order.
// A nil pred matches everything.
func (c *Collection[T]) List(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		rec := c.entries[id].rec
		if pred == nil || pred(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (c *Collection[T]) All() []T {
	return c.List(nil)
}

// Pending lists records written locally that the server has not confirmed,
// including those whose write failed.
func (c *Collection[T]) Pending() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for _, id := range c.order {
		if e := c.entries[id]; e.state == StateProvisional {
			out = append(out, e.rec.Clone())
		}
	}
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Watch registers fn for every subsequent change. The returned func removes it.
func (c *Collection[T]) Watch(fn func(Change[T])) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners = append(c.listeners, listener[T]{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}
