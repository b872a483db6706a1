package store

import (
	"fmt"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"

	log "github.com/sirupsen/logrus"
)

// Sources of applied records, used as a metrics label.
const (
	SourceLoad    = "load"
	SourceConfirm = "confirm"
	SourceRemote  = "remote"
)

// Store groups the collections a session keeps in sync with the backend.
type Store struct {
	Profiles *Collection[domain.Profile]
	Injuries *Collection[domain.InjuryRecord]
	Training *Collection[domain.TrainingRecord]
	Messages *Collection[domain.Message]
	Teams    *Collection[domain.Team]

	metrics *metrics.Manager
}

func New(m *metrics.Manager) *Store {
	return &Store{
		Profiles: NewCollection[domain.Profile](string(repository.TableProfiles)),
		Injuries: NewCollection[domain.InjuryRecord](string(repository.TableInjuries)),
		Training: NewCollection[domain.TrainingRecord](string(repository.TableTrainingLogs)),
		Messages: NewCollection[domain.Message](string(repository.TableMessages)),
		Teams:    NewCollection[domain.Team](string(repository.TableTeams)),
		metrics:  m,
	}
}

// ApplyChange maps a change-feed row and applies it to the matching
// collection. Rows that fail the mapping boundary are quarantined: logged,
// counted and dropped.
func (s *Store) ApplyChange(ev repository.ChangeEvent) (Outcome, error) {
	var (
		outcome Outcome
		err     error
	)
	switch ev.Table {
	case repository.TableProfiles:
		outcome, err = applyRemote(s.Profiles, repository.ProfileFromRow, ev)
	case repository.TableInjuries:
		outcome, err = applyRemote(s.Injuries, repository.InjuryFromRow, ev)
	case repository.TableTrainingLogs:
		outcome, err = applyRemote(s.Training, repository.TrainingFromRow, ev)
	case repository.TableMessages:
		outcome, err = applyRemote(s.Messages, repository.MessageFromRow, ev)
	case repository.TableTeams:
		outcome, err = applyRemote(s.Teams, repository.TeamFromRow, ev)
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrUnknownTable, ev.Table)
	}
	if err != nil {
		s.quarantine(ev.Table, ev.Row, err)
		return "", err
	}
	s.count(ev.Table, SourceRemote, outcome)
	return outcome, nil
}

// LoadRows applies rows from an initial query as confirmed records and
// returns how many were accepted.
func (s *Store) LoadRows(table repository.Table, rows []repository.Row) int {
	accepted := 0
	for _, row := range rows {
		var (
			outcome Outcome
			err     error
		)
		switch table {
		case repository.TableProfiles:
			outcome, err = applyConfirmed(s.Profiles, repository.ProfileFromRow, row)
		case repository.TableInjuries:
			outcome, err = applyConfirmed(s.Injuries, repository.InjuryFromRow, row)
		case repository.TableTrainingLogs:
			outcome, err = applyConfirmed(s.Training, repository.TrainingFromRow, row)
		case repository.TableMessages:
			outcome, err = applyConfirmed(s.Messages, repository.MessageFromRow, row)
		case repository.TableTeams:
			outcome, err = applyConfirmed(s.Teams, repository.TeamFromRow, row)
		default:
			log.Warnf("load rows: %s: %s", repository.ErrUnknownTable, table)
			return accepted
		}
		if err != nil {
			s.quarantine(table, row, err)
			continue
		}
		s.count(table, SourceLoad, outcome)
		accepted++
	}
	return accepted
}

// Confirmed records a write confirmation in the metrics.
func (s *Store) Confirmed(table repository.Table, outcome Outcome) {
	s.count(table, SourceConfirm, outcome)
}

func (s *Store) quarantine(table repository.Table, row repository.Row, err error) {
	log.WithFields(log.Fields{
		"table": table,
		"id":    repository.RowID(row),
	}).Warnf("quarantined row: %s", err)
	if s.metrics != nil {
		s.metrics.CounterQuarantined.WithLabelValues(string(table)).Inc()
	}
}

func (s *Store) count(table repository.Table, source string, outcome Outcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.CounterReconciled.WithLabelValues(string(table), source, string(outcome)).Inc()
}

func applyRemote[T Record[T]](c *Collection[T], decode func(repository.Row) (T, error), ev repository.ChangeEvent) (Outcome, error) {
	rec, err := decode(ev.Row)
	if err != nil {
		return "", err
	}
	return c.ApplyRemoteEvent(ev.Type, rec)
}

func applyConfirmed[T Record[T]](c *Collection[T], decode func(repository.Row) (T, error), row repository.Row) (Outcome, error) {
	rec, err := decode(row)
	if err != nil {
		return "", err
	}
	return c.ApplyServerConfirmed(rec)
}
