package service

import (
	"context"
	"testing"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/metrics"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testDay = time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)

func newGateway(t *testing.T) *memory.Gateway {
	t.Helper()
	gw := memory.NewGateway()
	t.Cleanup(gw.Close)
	return gw
}

func profile(id, name string, role domain.Role) domain.Profile {
	p := domain.Profile{
		ID:         id,
		Email:      id + "@example.com",
		Name:       name,
		Role:       role,
		IsApproved: true,
		CreatedAt:  testDay,
		UpdatedAt:  testDay,
	}
	if role == domain.RoleAthlete {
		p.Status = domain.HealthHealthy
	}
	return p
}

func seedProfiles(t *testing.T, gw *memory.Gateway, ps ...domain.Profile) {
	t.Helper()
	for _, p := range ps {
		row, err := repository.ProfileToRow(p)
		require.NoError(t, err)
		require.NoError(t, gw.Seed(repository.TableProfiles, row))
	}
}

func seedInjury(t *testing.T, gw *memory.Gateway, inj domain.InjuryRecord) {
	t.Helper()
	row, err := repository.InjuryToRow(inj)
	require.NoError(t, err)
	require.NoError(t, gw.Seed(repository.TableInjuries, row))
}

func openInjury(id, athleteID string, status domain.InjuryStatus) domain.InjuryRecord {
	return domain.InjuryRecord{
		ID:              id,
		AthleteID:       athleteID,
		BodyPart:        domain.BodyPartKneeL,
		Severity:        6,
		SeverityHistory: []domain.SeverityPoint{{Date: testDay, Value: 6}},
		Description:     "twisted on landing",
		Status:          status,
		DateLogged:      testDay,
		ActivityLog:     []domain.ActivityEntry{},
	}
}

// startSession loads and subscribes a session for actor; it is closed when the test ends.
func startSession(t *testing.T, gw repository.Gateway, actor domain.Profile) (*Session, *metrics.Manager) {
	t.Helper()
	m := metrics.NewTestManager()
	s := NewSession(actor, gw, m)
	s.now = func() time.Time { return testDay.Add(48 * time.Hour) }
	s.Load(context.Background())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Close)
	return s, m
}

func storedProfile(t *testing.T, gw repository.Gateway, id string) domain.Profile {
	t.Helper()
	p, err := fetchProfile(context.Background(), gw, id)
	require.NoError(t, err)
	return p
}
