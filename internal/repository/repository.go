package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Error constants for the repository layer.
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrInsertFailed    = RepositoryError("insert failed")
	ErrDuplicateKey    = RepositoryError("duplicate key")
	ErrMalformedRecord = RepositoryError("malformed record")
	ErrUnknownTable    = RepositoryError("unknown table")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Table names a remote collection.
type Table string

const (
	TableProfiles       Table = "profiles"
	TableCredentials    Table = "credentials"
	TableInjuries       Table = "injuries"
	TableTrainingLogs   Table = "training_logs"
	TableMessages       Table = "messages"
	TableTeams          Table = "teams"
	TableMedicalRecords Table = "medical_records"
)

// Tables lists every table the service reads or writes.
var Tables = []Table{
	TableProfiles, TableCredentials, TableInjuries, TableTrainingLogs,
	TableMessages, TableTeams, TableMedicalRecords,
}

// Row is a record in storage shape: snake_case keys, the row id under "id".
type Row = bson.M

// FieldID is the key every row uses for its identifier.
const FieldID = "id"

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// ChangeEvent is one notification from a table's change feed.
type ChangeEvent struct {
	Type  EventType
	Table Table
	Row   Row
}

// Order requests sorting of query results by a single field.
type Order struct {
	Field      string
	Descending bool
}

// EventFilter selects which change events a subscription receives.
// An empty Types slice means every event type.
type EventFilter struct {
	Types []EventType
	Match Filter
}

func (f EventFilter) Accepts(ev ChangeEvent) bool {
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if t == ev.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return f.Match.Matches(ev.Row)
}

// Handler receives change events. Events of one subscription are delivered
// one at a time, in the order the backend produced them.
type Handler func(ChangeEvent)

// Unsubscribe stops a subscription and waits for its delivery goroutine to exit.
type Unsubscribe func()

// Gateway is the remote data backend: request/response access to tables
// plus a per-table change feed.
type Gateway interface {
	Query(ctx context.Context, table Table, filter Filter, order *Order) ([]Row, error)
	// Insert persists row and returns it as confirmed by the backend, with its id.
	Insert(ctx context.Context, table Table, row Row) (Row, error)
	// Update applies patch to the row with the given id and returns the full
	// updated row. ErrNotFound when no such row exists.
	Update(ctx context.Context, table Table, id string, patch Row) (Row, error)
	Subscribe(ctx context.Context, table Table, filter EventFilter, handler Handler) (Unsubscribe, error)
}
