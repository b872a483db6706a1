package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/status"
	"athletix/tracker/internal/store"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	minReportedSeverity = 1
	staffReportNote     = "Initial injury report filed by staff."
)

// InjuryReport is a new injury filed by an athlete for themselves or by a
// trainer for one of their athletes.
type InjuryReport struct {
	AthleteID   string
	BodyPart    domain.BodyPart
	Severity    int
	PainType    string
	Description string
	Status      domain.InjuryStatus
}

// InjuryUpdate changes severity and/or status. Nil fields are kept.
type InjuryUpdate struct {
	Severity *int
	Status   *domain.InjuryStatus
}

type ActivityInput struct {
	Type     domain.ActivityType
	Content  string
	Progress domain.Progress
}

type TrainingInput struct {
	Date            time.Time
	DurationMinutes int
	RPE             int
	StressLevel     int
	Notes           string
}

func newActivityID() string {
	return "act_" + uuid.NewString()
}

// insertOptimistic applies rec locally as provisional, persists it and
// reconciles the stored copy with the confirmed row. A failed write leaves
// the provisional record in place; callers see it in Pending.
func insertOptimistic[T store.Record[T]](
	ctx context.Context,
	s *Session,
	c *store.Collection[T],
	table repository.Table,
	rec T,
	toRow func(T) (repository.Row, error),
	fromRow func(repository.Row) (T, error),
) (T, error) {
	var zero T
	if rec.Ref() == "" {
		rec = rec.WithRef(uuid.NewString())
	}
	row, err := toRow(rec)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c.ApplyLocalInsert(rec)

	saved, err := s.gateway.Insert(ctx, table, row)
	if err != nil {
		s.gatewayFailed(table, "insert", err)
		return zero, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return confirm(s, c, table, saved, fromRow)
}

// updateOptimistic overwrites the stored record with next, then persists patch.
func updateOptimistic[T store.Record[T]](
	ctx context.Context,
	s *Session,
	c *store.Collection[T],
	table repository.Table,
	next T,
	patch repository.Row,
	fromRow func(repository.Row) (T, error),
) (T, error) {
	var zero T
	if err := c.ApplyLocalUpdate(next); err != nil {
		return zero, err
	}

	saved, err := s.gateway.Update(ctx, table, next.Key(), patch)
	if err != nil {
		s.gatewayFailed(table, "update", err)
		return zero, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return confirm(s, c, table, saved, fromRow)
}

func confirm[T store.Record[T]](s *Session, c *store.Collection[T], table repository.Table, saved repository.Row, fromRow func(repository.Row) (T, error)) (T, error) {
	var zero T
	confirmed, err := fromRow(saved)
	if err != nil {
		return zero, fmt.Errorf("decode saved %s row: %w", table, err)
	}
	outcome, err := c.ApplyServerConfirmed(confirmed)
	if err != nil {
		return zero, err
	}
	s.store.Confirmed(table, outcome)
	return confirmed, nil
}

// ReportInjury logs a new injury and moves the athlete into recovery.
func (s *Session) ReportInjury(ctx context.Context, in InjuryReport) (domain.InjuryRecord, error) {
	actor := s.Actor()
	switch actor.Role {
	case domain.RoleAthlete:
		if in.AthleteID == "" {
			in.AthleteID = actor.ID
		}
		if in.AthleteID != actor.ID {
			return domain.InjuryRecord{}, ErrAccessDenied
		}
	case domain.RoleTrainer:
		if in.AthleteID == "" {
			return domain.InjuryRecord{}, fmt.Errorf("%w: athlete is required", ErrInvalidInput)
		}
	default:
		return domain.InjuryRecord{}, ErrAccessDenied
	}

	if !in.BodyPart.IsValid() {
		return domain.InjuryRecord{}, fmt.Errorf("%w: unknown body part %q", ErrInvalidInput, in.BodyPart)
	}
	if in.Severity < minReportedSeverity || in.Severity > domain.MaxSeverity {
		return domain.InjuryRecord{}, fmt.Errorf("%w: severity must be %d-%d", ErrInvalidInput, minReportedSeverity, domain.MaxSeverity)
	}
	if in.Status == "" {
		in.Status = domain.InjuryActive
	}
	if !in.Status.IsValid() {
		return domain.InjuryRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}

	now := s.now()
	rec := domain.InjuryRecord{
		AthleteID:       in.AthleteID,
		BodyPart:        in.BodyPart,
		Severity:        in.Severity,
		SeverityHistory: []domain.SeverityPoint{{Date: now, Value: in.Severity}},
		PainType:        strings.TrimSpace(in.PainType),
		Description:     strings.TrimSpace(in.Description),
		Status:          in.Status,
		DateLogged:      now,
		ActivityLog:     []domain.ActivityEntry{},
	}
	if actor.Role.IsStaff() {
		rec.ActivityLog = append(rec.ActivityLog, domain.ActivityEntry{
			ID:         newActivityID(),
			AuthorName: actor.Name,
			AuthorRole: actor.Role,
			Date:       now,
			Type:       domain.ActivityTreatment,
			Content:    staffReportNote,
			Progress:   domain.ProgressWorse,
		})
	}

	saved, err := insertOptimistic(ctx, s, s.store.Injuries, repository.TableInjuries, rec,
		repository.InjuryToRow, repository.InjuryFromRow)
	if err != nil {
		return domain.InjuryRecord{}, err
	}

	if err := s.applyTransition(ctx, status.OnInjuryCreated(saved.AthleteID)); err != nil {
		return saved, err
	}
	return saved, nil
}

func (s *Session) heldInjury(actor domain.Profile, injuryID string) (domain.InjuryRecord, error) {
	cur, ok := s.store.Injuries.Get(injuryID)
	if !ok {
		return domain.InjuryRecord{}, ErrInjuryNotFound
	}
	if store.IsProvisional(cur.ID) {
		return domain.InjuryRecord{}, ErrNotConfirmed
	}
	if actor.Role == domain.RoleAthlete && cur.AthleteID != actor.ID {
		return domain.InjuryRecord{}, ErrAccessDenied
	}
	return cur, nil
}

// UpdateInjury changes severity and status, recording the change in the
// activity log. Resolving an injury may clear the athlete.
func (s *Session) UpdateInjury(ctx context.Context, injuryID string, upd InjuryUpdate) (domain.InjuryRecord, error) {
	actor := s.Actor()
	cur, err := s.heldInjury(actor, injuryID)
	if err != nil {
		return domain.InjuryRecord{}, err
	}

	// forms resubmit the current status unchanged
	if upd.Status != nil && *upd.Status == cur.Status {
		upd.Status = nil
	}
	if upd.Severity == nil && upd.Status == nil {
		return cur, nil
	}

	// the Status Update entry below is generated, not authored
	if err := status.AuthorizeInjuryPatch(actor.Role, status.InjuryPatch{
		SetsSeverity: upd.Severity != nil,
		SetsStatus:   upd.Status != nil,
	}); err != nil {
		return domain.InjuryRecord{}, err
	}
	if upd.Severity != nil && (*upd.Severity < domain.MinSeverity || *upd.Severity > domain.MaxSeverity) {
		return domain.InjuryRecord{}, fmt.Errorf("%w: severity must be %d-%d", ErrInvalidInput, domain.MinSeverity, domain.MaxSeverity)
	}
	if upd.Status != nil && !upd.Status.IsValid() {
		return domain.InjuryRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
	}

	now := s.now()
	next := cur.Clone()
	var patch repository.InjuryPatch
	if upd.Severity != nil && *upd.Severity != cur.Severity {
		next.Severity = *upd.Severity
		next.SeverityHistory = append(next.SeverityHistory, domain.SeverityPoint{Date: now, Value: next.Severity})
		patch.Severity = &next.Severity
		patch.SeverityHistory = next.SeverityHistory
	}
	if upd.Status != nil {
		next.Status = *upd.Status
		patch.Status = &next.Status
	}
	entry := domain.ActivityEntry{
		ID:         newActivityID(),
		AuthorName: actor.Name,
		AuthorRole: actor.Role,
		Date:       now,
		Type:       domain.ActivityStatusUpdate,
		Content:    fmt.Sprintf("Condition updated. Severity: %d/10. Status: %s.", next.Severity, next.Status),
		Progress:   domain.ProgressFor(cur.Severity, next.Severity),
	}
	next.ActivityLog = append([]domain.ActivityEntry{entry}, next.ActivityLog...)
	patch.ActivityLog = next.ActivityLog

	row, err := patch.Row()
	if err != nil {
		return domain.InjuryRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	saved, err := updateOptimistic(ctx, s, s.store.Injuries, repository.TableInjuries, next, row, repository.InjuryFromRow)
	if err != nil {
		return domain.InjuryRecord{}, err
	}

	if upd.Status != nil {
		siblings := s.store.Injuries.List(func(i domain.InjuryRecord) bool {
			return i.AthleteID == saved.AthleteID
		})
		if t, ok := status.OnInjuryUpdated(saved, siblings); ok {
			if err := s.applyTransition(ctx, t); err != nil {
				return saved, err
			}
		}
	}
	return saved, nil
}

// AddActivity puts a new entry at the top of an injury's activity log.
func (s *Session) AddActivity(ctx context.Context, injuryID string, in ActivityInput) (domain.InjuryRecord, error) {
	actor := s.Actor()
	cur, err := s.heldInjury(actor, injuryID)
	if err != nil {
		return domain.InjuryRecord{}, err
	}
	if !in.Type.IsValid() {
		return domain.InjuryRecord{}, fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, in.Type)
	}
	if in.Progress != "" && !in.Progress.IsValid() {
		return domain.InjuryRecord{}, fmt.Errorf("%w: unknown progress %q", ErrInvalidInput, in.Progress)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.InjuryRecord{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if err := status.AuthorizeInjuryPatch(actor.Role, status.InjuryPatch{Activity: &in.Type}); err != nil {
		return domain.InjuryRecord{}, err
	}

	next := cur.Clone()
	next.ActivityLog = append([]domain.ActivityEntry{{
		ID:         newActivityID(),
		AuthorName: actor.Name,
		AuthorRole: actor.Role,
		Date:       s.now(),
		Type:       in.Type,
		Content:    content,
		Progress:   in.Progress,
	}}, next.ActivityLog...)

	row, err := repository.InjuryPatch{ActivityLog: next.ActivityLog}.Row()
	if err != nil {
		return domain.InjuryRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return updateOptimistic(ctx, s, s.store.Injuries, repository.TableInjuries, next, row, repository.InjuryFromRow)
}

// LogTraining records a training session for the signed-in athlete.
func (s *Session) LogTraining(ctx context.Context, in TrainingInput) (domain.TrainingRecord, error) {
	actor := s.Actor()
	if actor.Role != domain.RoleAthlete {
		return domain.TrainingRecord{}, ErrAccessDenied
	}
	if in.DurationMinutes <= 0 {
		return domain.TrainingRecord{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if in.RPE < domain.MinRPE || in.RPE > domain.MaxRPE || in.StressLevel < domain.MinRPE || in.StressLevel > domain.MaxRPE {
		return domain.TrainingRecord{}, fmt.Errorf("%w: rpe and stress must be %d-%d", ErrInvalidInput, domain.MinRPE, domain.MaxRPE)
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	rec := domain.TrainingRecord{
		AthleteID:       actor.ID,
		Date:            in.Date.UTC(),
		DurationMinutes: in.DurationMinutes,
		RPE:             in.RPE,
		StressLevel:     in.StressLevel,
		Notes:           strings.TrimSpace(in.Notes),
	}
	return insertOptimistic(ctx, s, s.store.Training, repository.TableTrainingLogs, rec,
		repository.TrainingToRow, repository.TrainingFromRow)
}

// StaffContact returns the first known staff member with the given role.
func (s *Session) StaffContact(role domain.Role) (domain.Profile, error) {
	staff := s.store.Profiles.List(func(p domain.Profile) bool {
		return p.Role == role && p.ID != s.actor.ID
	})
	if len(staff) == 0 {
		return domain.Profile{}, ErrNoStaffAssigned
	}
	return staff[0], nil
}

// SendMessage sends text to receiverID. An empty receiver means the athlete
// has no staff member to write to.
func (s *Session) SendMessage(ctx context.Context, receiverID, text string) (domain.Message, error) {
	actor := s.Actor()
	if receiverID == "" {
		return domain.Message{}, ErrNoStaffAssigned
	}
	if receiverID == actor.ID {
		return domain.Message{}, fmt.Errorf("%w: cannot message yourself", ErrInvalidInput)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}

	msg := domain.Message{
		SenderID:   actor.ID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  s.now(),
	}
	return insertOptimistic(ctx, s, s.store.Messages, repository.TableMessages, msg,
		repository.MessageToRow, repository.MessageFromRow)
}

// MarkConversationRead flags every unread message from otherID to the actor
// as read and returns how many were updated.
func (s *Session) MarkConversationRead(ctx context.Context, otherID string) (int, error) {
	me := s.actor.ID
	unread := s.store.Messages.List(func(m domain.Message) bool {
		return m.SenderID == otherID && m.ReceiverID == me && !m.IsRead && !store.IsProvisional(m.ID)
	})

	n := 0
	for _, m := range unread {
		m.IsRead = true
		if _, err := updateOptimistic(ctx, s, s.store.Messages, repository.TableMessages, m,
			repository.MessageReadPatch(), repository.MessageFromRow); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SetAthleteStatus is a manual override of an athlete's health status.
func (s *Session) SetAthleteStatus(ctx context.Context, athleteID string, to domain.HealthStatus) (domain.Profile, error) {
	t, err := status.Override(s.Actor().Role, athleteID, to)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := s.applyTransition(ctx, t); err != nil {
		return domain.Profile{}, err
	}
	p, _ := s.store.Profiles.Get(athleteID)
	return p, nil
}

func (s *Session) applyTransition(ctx context.Context, t status.Transition) error {
	now := s.now()
	patch, err := repository.ProfilePatch{Status: &t.To, UpdatedAt: now}.Row()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	held, ok := s.store.Profiles.Get(t.AthleteID)
	if ok {
		held.Status = t.To
		held.UpdatedAt = now
		_, err = updateOptimistic(ctx, s, s.store.Profiles, repository.TableProfiles, held, patch, repository.ProfileFromRow)
	} else {
		var saved repository.Row
		saved, err = s.gateway.Update(ctx, repository.TableProfiles, t.AthleteID, patch)
		if err != nil {
			s.gatewayFailed(repository.TableProfiles, "update", err)
			err = fmt.Errorf("%w: %w", ErrPersistFailed, err)
		} else {
			_, err = confirm(s, s.store.Profiles, repository.TableProfiles, saved, repository.ProfileFromRow)
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("athlete %s: %w", t.AthleteID, err)
		}
		return err
	}

	log.WithFields(log.Fields{
		"athlete": t.AthleteID,
		"status":  t.To,
		"reason":  t.Reason,
		"by":      s.actor.ID,
	}).Info("athlete status changed")
	return nil
}
