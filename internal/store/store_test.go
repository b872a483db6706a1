package store

import (
	"testing"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func injuryRow(t *testing.T, id string) repository.Row {
	t.Helper()
	row, err := repository.InjuryToRow(domain.InjuryRecord{
		ID: id, AthleteID: "ath-1", BodyPart: domain.BodyPartKneeL, Severity: 4,
		Status: domain.InjuryActive, DateLogged: ts,
	})
	require.NoError(t, err)
	return row
}

func TestStore_ApplyChangeDispatchesByTable(t *testing.T) {
	m := metrics.NewTestManager()
	s := New(m)

	out, err := s.ApplyChange(repository.ChangeEvent{Type: repository.EventInsert, Table: repository.TableInjuries, Row: injuryRow(t, "i1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, out)

	out, err = s.ApplyChange(repository.ChangeEvent{Type: repository.EventInsert, Table: repository.TableInjuries, Row: injuryRow(t, "i1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)

	assert.Equal(t, 1, s.Injuries.Len())
	assert.Equal(t, 0, s.Profiles.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterReconciled.WithLabelValues("injuries", SourceRemote, string(OutcomeIgnored))))
}

func TestStore_QuarantinesMalformedRows(t *testing.T) {
	m := metrics.NewTestManager()
	s := New(m)

	bad := injuryRow(t, "i1")
	bad["body_part"] = "Elbow"
	_, err := s.ApplyChange(repository.ChangeEvent{Type: repository.EventInsert, Table: repository.TableInjuries, Row: bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrMalformedRecord)
	assert.Equal(t, 0, s.Injuries.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterQuarantined.WithLabelValues("injuries")))
}

func TestStore_LoadRowsSkipsMalformed(t *testing.T) {
	s := New(metrics.NewTestManager())
	bad := injuryRow(t, "i2")
	bad["severity"] = "very"

	n := s.LoadRows(repository.TableInjuries, []repository.Row{injuryRow(t, "i1"), bad, injuryRow(t, "i3")})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Injuries.Len())
}

func TestStore_UnknownTable(t *testing.T) {
	s := New(nil)
	_, err := s.ApplyChange(repository.ChangeEvent{Type: repository.EventInsert, Table: repository.TableMedicalRecords, Row: repository.Row{"id": "x"}})
	assert.ErrorIs(t, err, repository.ErrUnknownTable)
}
