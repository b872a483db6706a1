package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/status"
	"athletix/tracker/internal/store"
	"athletix/tracker/internal/views"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LoadScopesAthleteData(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw,
		profile("ath-1", "Sam", domain.RoleAthlete),
		profile("ath-2", "Kim", domain.RoleAthlete),
		profile("coach-1", "Cora", domain.RoleCoach),
	)
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryActive))
	seedInjury(t, gw, openInjury("inj-2", "ath-2", domain.InjuryActive))

	s, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))

	assert.Equal(t, 1, s.Store().Injuries.Len())
	_, ok := s.Store().Profiles.Get("ath-2")
	assert.False(t, ok, "other athletes are not loaded")
	_, ok = s.Store().Profiles.Get("coach-1")
	assert.True(t, ok)
}

func TestSession_LoadDegradesOnQueryError(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryActive))
	gw.FailQueries(repository.TableInjuries, errors.New("timeout"))

	s, m := startSession(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))

	assert.Equal(t, 0, s.Store().Injuries.Len())
	assert.Equal(t, 1, s.Store().Profiles.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterGatewayFailures.WithLabelValues("injuries", "query")))
}

func TestSession_ReportInjury_EchoIsNotDuplicated(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	s, m := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))

	inj, err := s.ReportInjury(context.Background(), InjuryReport{
		BodyPart: domain.BodyPartAnkleR,
		Severity: 7,
		PainType: "Sharp",
	})
	require.NoError(t, err)
	assert.False(t, store.IsProvisional(inj.ID))
	assert.Equal(t, "ath-1", inj.AthleteID)
	assert.Equal(t, domain.InjuryActive, inj.Status)
	assert.Empty(t, inj.ActivityLog)
	require.Len(t, inj.SeverityHistory, 1)

	remote := func() float64 {
		return testutil.ToFloat64(m.CounterReconciled.WithLabelValues("injuries", store.SourceRemote, string(store.OutcomePromoted))) +
			testutil.ToFloat64(m.CounterReconciled.WithLabelValues("injuries", store.SourceRemote, string(store.OutcomeIgnored)))
	}
	require.Eventually(t, func() bool { return remote() == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, s.Store().Injuries.Len())
	assert.Empty(t, s.Store().Injuries.Pending())
	held, ok := s.Store().Injuries.Get(inj.ID)
	require.True(t, ok)
	assert.Equal(t, inj.ClientRef, held.ClientRef)

	assert.Equal(t, domain.HealthRecovery, s.Actor().Status)
	assert.Equal(t, domain.HealthRecovery, storedProfile(t, gw, "ath-1").Status)
}

func TestSession_ReportInjury_PersistFailureStaysPending(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	s, m := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	gw.FailWrites(repository.TableInjuries, errors.New("offline"))

	_, err := s.ReportInjury(context.Background(), InjuryReport{BodyPart: domain.BodyPartBack, Severity: 4})
	require.ErrorIs(t, err, ErrPersistFailed)

	pending := s.Store().Injuries.Pending()
	require.Len(t, pending, 1)
	assert.True(t, store.IsProvisional(pending[0].ID))
	assert.Equal(t, domain.HealthHealthy, s.Actor().Status, "no transition without a saved injury")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterGatewayFailures.WithLabelValues("injuries", "insert")))

	_, err = s.UpdateInjury(context.Background(), pending[0].ID, InjuryUpdate{Severity: intPtr(2)})
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestSession_ReportInjury_Validation(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	s, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	ctx := context.Background()

	_, err := s.ReportInjury(ctx, InjuryReport{BodyPart: "Elbow", Severity: 3})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.ReportInjury(ctx, InjuryReport{BodyPart: domain.BodyPartHip, Severity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.ReportInjury(ctx, InjuryReport{AthleteID: "ath-2", BodyPart: domain.BodyPartHip, Severity: 3})
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, 0, s.Store().Injuries.Len())
}

func TestSession_ReportInjury_ByStaff(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw,
		profile("ath-1", "Sam", domain.RoleAthlete),
		profile("tr-1", "Tess", domain.RoleTrainer),
		profile("coach-1", "Cora", domain.RoleCoach),
	)
	trainer, _ := startSession(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))

	inj, err := trainer.ReportInjury(context.Background(), InjuryReport{
		AthleteID:   "ath-1",
		BodyPart:    domain.BodyPartShoulderL,
		Severity:    5,
		Description: "pain on overhead press",
	})
	require.NoError(t, err)
	require.Len(t, inj.ActivityLog, 1)
	assert.Equal(t, domain.ActivityTreatment, inj.ActivityLog[0].Type)
	assert.Equal(t, staffReportNote, inj.ActivityLog[0].Content)
	assert.Equal(t, domain.ProgressWorse, inj.ActivityLog[0].Progress)
	assert.Equal(t, domain.RoleTrainer, inj.ActivityLog[0].AuthorRole)
	assert.Equal(t, domain.HealthRecovery, storedProfile(t, gw, "ath-1").Status)

	coach, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))
	_, err = coach.ReportInjury(context.Background(), InjuryReport{AthleteID: "ath-1", BodyPart: domain.BodyPartHip, Severity: 2})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSession_UpdateInjury_ResolvingLastOpenInjuryClearsAthlete(t *testing.T) {
	gw := newGateway(t)
	athlete := profile("ath-1", "Sam", domain.RoleAthlete)
	athlete.Status = domain.HealthRecovery
	seedProfiles(t, gw, athlete, profile("tr-1", "Tess", domain.RoleTrainer))
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryRecovering))
	seedInjury(t, gw, openInjury("inj-2", "ath-1", domain.InjuryActive))
	s, _ := startSession(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))
	ctx := context.Background()

	resolved := domain.InjuryResolved
	got, err := s.UpdateInjury(ctx, "inj-1", InjuryUpdate{Status: &resolved, Severity: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.InjuryResolved, got.Status)
	require.Len(t, got.SeverityHistory, 2)
	assert.Equal(t, 1, got.SeverityHistory[1].Value)
	require.NotEmpty(t, got.ActivityLog)
	assert.Equal(t, domain.ActivityStatusUpdate, got.ActivityLog[0].Type)
	assert.Equal(t, "Condition updated. Severity: 1/10. Status: Resolved.", got.ActivityLog[0].Content)
	assert.Equal(t, domain.ProgressBetter, got.ActivityLog[0].Progress)

	assert.Equal(t, domain.HealthRecovery, storedProfile(t, gw, "ath-1").Status, "inj-2 is still open")

	_, err = s.UpdateInjury(ctx, "inj-2", InjuryUpdate{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, storedProfile(t, gw, "ath-1").Status)
	p, _ := s.Store().Profiles.Get("ath-1")
	assert.Equal(t, domain.HealthHealthy, p.Status)
}

func TestSession_UpdateInjury_AthleteLimits(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryActive))
	seedInjury(t, gw, openInjury("inj-9", "ath-9", domain.InjuryActive))
	s, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	ctx := context.Background()

	resolved := domain.InjuryResolved
	_, err := s.UpdateInjury(ctx, "inj-1", InjuryUpdate{Status: &resolved})
	assert.ErrorIs(t, err, status.ErrStatusWriteForbidden)

	// resubmitting the current status is not a status write
	active := domain.InjuryActive
	got, err := s.UpdateInjury(ctx, "inj-1", InjuryUpdate{Status: &active, Severity: intPtr(8)})
	require.NoError(t, err)
	assert.Equal(t, 8, got.Severity)
	assert.Equal(t, domain.ProgressWorse, got.ActivityLog[0].Progress)

	_, err = s.UpdateInjury(ctx, "inj-1", InjuryUpdate{Severity: intPtr(11)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.UpdateInjury(ctx, "inj-9", InjuryUpdate{Severity: intPtr(2)})
	assert.ErrorIs(t, err, ErrInjuryNotFound)
}

func TestSession_AddActivity(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryActive))
	athlete, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	coach, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))
	ctx := context.Background()

	_, err := athlete.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityTreatment, Content: "iced"})
	assert.ErrorIs(t, err, status.ErrTreatmentForbidden)
	_, err = coach.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityTreatment, Content: "iced"})
	assert.ErrorIs(t, err, status.ErrTreatmentForbidden)
	_, err = athlete.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityStatusUpdate, Content: "Status: Resolved. Cleared to play."})
	assert.ErrorIs(t, err, status.ErrActivityForbidden)
	held, _ := athlete.Store().Injuries.Get("inj-1")
	assert.Empty(t, held.ActivityLog)
	_, err = athlete.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityNote, Content: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = athlete.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityNote, Content: "first"})
	require.NoError(t, err)
	got, err := athlete.AddActivity(ctx, "inj-1", ActivityInput{Type: domain.ActivityNote, Content: "second", Progress: domain.ProgressSame})
	require.NoError(t, err)
	require.Len(t, got.ActivityLog, 2)
	assert.Equal(t, "second", got.ActivityLog[0].Content)
	assert.Equal(t, "Sam", got.ActivityLog[0].AuthorName)
}

func TestSession_LogTraining(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	s, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	ctx := context.Background()

	rec, err := s.LogTraining(ctx, TrainingInput{DurationMinutes: 60, RPE: 7, StressLevel: 4})
	require.NoError(t, err)
	assert.Equal(t, 420, rec.Load())
	assert.Equal(t, "ath-1", rec.AthleteID)
	assert.Len(t, s.Training(), 1)

	_, err = s.LogTraining(ctx, TrainingInput{DurationMinutes: 0, RPE: 7, StressLevel: 4})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.LogTraining(ctx, TrainingInput{DurationMinutes: 30, RPE: 11, StressLevel: 4})
	assert.ErrorIs(t, err, ErrInvalidInput)

	coach, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))
	_, err = coach.LogTraining(ctx, TrainingInput{DurationMinutes: 30, RPE: 5, StressLevel: 5})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSession_SendMessage_NoStaffAssigned(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	s, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))

	_, err := s.StaffContact(domain.RoleTrainer)
	assert.ErrorIs(t, err, ErrNoStaffAssigned)
	_, err = s.SendMessage(context.Background(), "", "hello?")
	assert.ErrorIs(t, err, ErrNoStaffAssigned)
	assert.Equal(t, 0, s.Store().Messages.Len())
}

func TestSession_MessagesAndReadReceipts(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	athlete, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	coach, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))
	ctx := context.Background()

	to, err := athlete.StaffContact(domain.RoleCoach)
	require.NoError(t, err)
	_, err = athlete.SendMessage(ctx, to.ID, "knee is sore")
	require.NoError(t, err)
	_, err = athlete.SendMessage(ctx, to.ID, "skipping drills today")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(coach.Conversation("ath-1")) == 2 }, 2*time.Second, 10*time.Millisecond)
	contacts := coach.Contacts()
	require.Len(t, contacts, 1)
	assert.Equal(t, 2, contacts[0].Unread)

	n, err := coach.MarkConversationRead(ctx, "ath-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, coach.Contacts()[0].Unread)
	assert.Len(t, athlete.Conversation("coach-1"), 2)
}

func TestSession_CoachReadsAreRedacted(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	inj := openInjury("inj-1", "ath-1", domain.InjuryActive)
	inj.ActivityLog = []domain.ActivityEntry{
		{ID: "a1", AuthorName: "Tess", AuthorRole: domain.RoleTrainer, Date: testDay, Type: domain.ActivityTreatment, Content: "taped"},
		{ID: "a2", AuthorName: "Sam", AuthorRole: domain.RoleAthlete, Date: testDay, Type: domain.ActivityNote, Content: "sore"},
	}
	seedInjury(t, gw, inj)
	s, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))

	list := s.Injuries()
	require.Len(t, list, 1)
	assert.Equal(t, domain.HiddenMarker, list[0].Description)
	require.Len(t, list[0].ActivityLog, 1)
	assert.Equal(t, domain.ActivityNote, list[0].ActivityLog[0].Type)

	one, err := s.Injury("inj-1")
	require.NoError(t, err)
	assert.Equal(t, domain.HiddenMarker, one.Description)

	held, _ := s.Store().Injuries.Get("inj-1")
	assert.Equal(t, "twisted on landing", held.Description)
	assert.Len(t, held.ActivityLog, 2)
}

func TestSession_RemoteChangesReachStore(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))
	s, m := startSession(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))

	row, err := repository.InjuryToRow(openInjury("", "ath-3", domain.InjuryActive))
	require.NoError(t, err)
	_, err = gw.Insert(context.Background(), repository.TableInjuries, row)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.Store().Injuries.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	gw.Publish(repository.TableInjuries, repository.EventInsert, repository.Row{"id": "bad", "severity": 40})
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.CounterQuarantined.WithLabelValues("injuries")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, s.Store().Injuries.Len())
}

func TestSession_CloseStopsSubscriptions(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	s := NewSession(profile("ath-1", "Sam", domain.RoleAthlete), gw, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, gw.Subscribers(repository.TableInjuries))

	s.Close()
	s.Close()
	assert.Equal(t, 0, gw.Subscribers(repository.TableInjuries))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSessionClosed)
}

func TestSession_SetAthleteStatus(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	coach, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))
	athlete, _ := startSession(t, gw, profile("ath-1", "Sam", domain.RoleAthlete))
	ctx := context.Background()

	p, err := coach.SetAthleteStatus(ctx, "ath-1", domain.HealthInjured)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthInjured, p.Status)
	require.Eventually(t, func() bool { return athlete.Actor().Status == domain.HealthInjured }, 2*time.Second, 10*time.Millisecond)

	_, err = athlete.SetAthleteStatus(ctx, "ath-1", domain.HealthHealthy)
	assert.ErrorIs(t, err, status.ErrForbidden)
	_, err = coach.SetAthleteStatus(ctx, "ath-1", "Retired")
	assert.ErrorIs(t, err, status.ErrInvalidStatus)
}

func TestSession_StaffViews(t *testing.T) {
	gw := newGateway(t)
	a1 := profile("ath-1", "Sam", domain.RoleAthlete)
	a1.Status = domain.HealthRecovery
	seedProfiles(t, gw, a1, profile("ath-2", "Kim", domain.RoleAthlete), profile("tr-1", "Tess", domain.RoleTrainer))
	seedInjury(t, gw, openInjury("inj-1", "ath-1", domain.InjuryActive))
	seedInjury(t, gw, openInjury("inj-2", "ath-1", domain.InjuryResolved))
	s, _ := startSession(t, gw, profile("tr-1", "Tess", domain.RoleTrainer))

	roster, err := s.Roster("", "")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Kim", roster[0].Profile.Name)
	assert.Equal(t, 1, roster[1].ActiveInjuries)
	assert.True(t, roster[1].Recurring)

	ov, err := s.Overview()
	require.NoError(t, err)
	assert.Equal(t, 2, ov.Athletes)
	assert.Equal(t, 1, ov.InRecovery)

	trends, err := s.Trends("week")
	require.NoError(t, err)
	assert.Equal(t, 2, trends.Total)

	detail, err := s.AthleteDetail("ath-1")
	require.NoError(t, err)
	assert.Len(t, detail.ActiveInjuries, 1)
	assert.Len(t, detail.Resolved, 1)
	assert.Equal(t, []domain.BodyPart{domain.BodyPartKneeL}, detail.Recurring)

	_, err = s.AthleteDetail("tr-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = s.AthleteDashboard()
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSession_Trends_TopThreeAndDrillDownShareWindow(t *testing.T) {
	gw := newGateway(t)
	seedProfiles(t, gw, profile("ath-1", "Sam", domain.RoleAthlete), profile("coach-1", "Cora", domain.RoleCoach))
	parts := []domain.BodyPart{domain.BodyPartHead, domain.BodyPartBack, domain.BodyPartHip, domain.BodyPartChest, domain.BodyPartKneeL}
	for i, part := range parts {
		inj := openInjury(fmt.Sprintf("inj-%d", i), "ath-1", domain.InjuryActive)
		inj.BodyPart = part
		seedInjury(t, gw, inj)
	}
	old := openInjury("inj-old", "ath-1", domain.InjuryActive)
	old.BodyPart = domain.BodyPartFootR
	old.DateLogged = testDay.AddDate(0, 0, -20)
	seedInjury(t, gw, old)
	s, _ := startSession(t, gw, profile("coach-1", "Cora", domain.RoleCoach))

	trends, err := s.Trends(views.WindowWeek)
	require.NoError(t, err)
	assert.Equal(t, 5, trends.Total)
	assert.Len(t, trends.TopBodyParts, 3)

	var footCount int
	for _, cell := range trends.Heatmap {
		if cell.BodyPart == domain.BodyPartFootR {
			footCount = cell.Count
		}
	}
	assert.Equal(t, 0, footCount)

	week, err := s.InjuriesAt(domain.BodyPartFootR, views.WindowWeek)
	require.NoError(t, err)
	assert.Empty(t, week)

	season, err := s.InjuriesAt(domain.BodyPartFootR, "")
	require.NoError(t, err)
	require.Len(t, season, 1)
	assert.Equal(t, domain.HiddenMarker, season[0].Description)

	_, err = s.InjuriesAt(domain.BodyPartFootR, "decade")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func intPtr(n int) *int { return &n }
