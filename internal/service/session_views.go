package service

import (
	"sort"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/views"
)

const (
	topBodyPartsShown  = 3
	recentTrainingRows = 5
)

// Every read below returns records redacted for the session's role. The
// store itself keeps the full records.

func (s *Session) redact(recs []domain.InjuryRecord) []domain.InjuryRecord {
	return domain.RedactInjuriesForRole(recs, s.actor.Role)
}

func (s *Session) visibleInjuries() []domain.InjuryRecord {
	if s.actor.Role == domain.RoleAthlete {
		return s.store.Injuries.List(func(i domain.InjuryRecord) bool { return i.AthleteID == s.actor.ID })
	}
	return s.store.Injuries.All()
}

func (s *Session) athletes() []domain.Profile {
	out := s.store.Profiles.List(func(p domain.Profile) bool { return p.IsAthlete() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Injuries lists the injuries the actor may see, newest first.
func (s *Session) Injuries() []domain.InjuryRecord {
	out := s.visibleInjuries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateLogged.After(out[j].DateLogged) })
	return s.redact(out)
}

func (s *Session) Injury(id string) (domain.InjuryRecord, error) {
	inj, ok := s.store.Injuries.Get(id)
	if !ok {
		return domain.InjuryRecord{}, ErrInjuryNotFound
	}
	if s.actor.Role == domain.RoleAthlete && inj.AthleteID != s.actor.ID {
		return domain.InjuryRecord{}, ErrInjuryNotFound
	}
	inj = domain.RedactInjuryForRole(inj, s.actor.Role)
	inj.ActivityLog = views.SortedActivity(inj)
	return inj, nil
}

// PendingInjuries lists injuries whose save has not been confirmed.
func (s *Session) PendingInjuries() []domain.InjuryRecord {
	return s.redact(s.store.Injuries.Pending())
}

func (s *Session) Training() []domain.TrainingRecord {
	out := s.store.Training.List(func(t domain.TrainingRecord) bool {
		return s.actor.Role != domain.RoleAthlete || t.AthleteID == s.actor.ID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Conversation returns the actor's messages with otherID, oldest first.
func (s *Session) Conversation(otherID string) []domain.Message {
	return views.Conversation(s.store.Messages.All(), s.actor.ID, otherID)
}

// Contact is a conversation partner with their unread count.
type Contact struct {
	Profile domain.Profile `json:"profile"`
	Unread  int            `json:"unread"`
}

// Contacts lists who the actor can message: staff for athletes, athletes and
// other staff for staff.
func (s *Session) Contacts() []Contact {
	me := s.actor.ID
	msgs := s.store.Messages.All()
	people := s.store.Profiles.List(func(p domain.Profile) bool {
		if p.ID == me {
			return false
		}
		return s.actor.Role != domain.RoleAthlete || p.Role.IsStaff()
	})
	sort.SliceStable(people, func(i, j int) bool { return people[i].Name < people[j].Name })

	out := make([]Contact, 0, len(people))
	for _, p := range people {
		out = append(out, Contact{Profile: p, Unread: views.UnreadFrom(msgs, p.ID, me)})
	}
	return out
}

// AthleteDashboard is what an athlete sees on sign-in.
type AthleteDashboard struct {
	Profile        domain.Profile          `json:"profile"`
	ActiveInjuries []domain.InjuryRecord   `json:"activeInjuries"`
	Resolved       []domain.InjuryRecord   `json:"resolvedInjuries"`
	Recurring      []domain.BodyPart       `json:"recurringBodyParts"`
	WeeklyLoad     []views.WeekBucket      `json:"weeklyLoad"`
	RecentTraining []domain.TrainingRecord `json:"recentTraining"`
	Heatmap        []views.HeatCell        `json:"heatmap"`
	Pending        int                     `json:"pending"`
}

func (s *Session) AthleteDashboard() (AthleteDashboard, error) {
	if s.actor.Role != domain.RoleAthlete {
		return AthleteDashboard{}, ErrAccessDenied
	}
	return s.athleteSummary(s.actor.ID), nil
}

func (s *Session) athleteSummary(athleteID string) AthleteDashboard {
	profile, _ := s.store.Profiles.Get(athleteID)
	injuries := views.ForAthlete(s.store.Injuries.All(), athleteID)
	training := s.store.Training.List(func(t domain.TrainingRecord) bool { return t.AthleteID == athleteID })

	return AthleteDashboard{
		Profile:        profile,
		ActiveInjuries: s.redact(views.ActiveInjuries(injuries)),
		Resolved:       s.redact(views.ResolvedInjuries(injuries)),
		Recurring:      views.RecurringBodyParts(injuries, athleteID),
		WeeklyLoad:     views.WeeklyLoad(training, injuries, s.now()),
		RecentTraining: views.RecentTraining(training, recentTrainingRows),
		Heatmap:        views.Heatmap(injuries),
		Pending:        len(s.store.Injuries.Pending()) + len(s.store.Training.Pending()),
	}
}

// AthleteDetail is the staff view of a single athlete.
func (s *Session) AthleteDetail(athleteID string) (AthleteDashboard, error) {
	if !s.actor.Role.IsStaff() {
		return AthleteDashboard{}, ErrAccessDenied
	}
	p, ok := s.store.Profiles.Get(athleteID)
	if !ok || !p.IsAthlete() {
		return AthleteDashboard{}, ErrProfileNotFound
	}
	d := s.athleteSummary(athleteID)
	d.Pending = 0
	return d, nil
}

// RosterEntry is one row of the staff roster.
type RosterEntry struct {
	Profile        domain.Profile `json:"profile"`
	ActiveInjuries int            `json:"activeInjuries"`
	Recurring      bool           `json:"recurring"`
}

func (s *Session) Roster(filter views.RosterFilter, search string) ([]RosterEntry, error) {
	if !s.actor.Role.IsStaff() {
		return nil, ErrAccessDenied
	}
	if filter == "" {
		filter = views.RosterAll
	}
	if !filter.IsValid() {
		return nil, ErrInvalidInput
	}

	injuries := s.store.Injuries.All()
	athletes := views.FilterRoster(s.athletes(), injuries, filter, search)
	out := make([]RosterEntry, 0, len(athletes))
	for _, a := range athletes {
		own := views.ForAthlete(injuries, a.ID)
		out = append(out, RosterEntry{
			Profile:        a,
			ActiveInjuries: len(views.ActiveInjuries(own)),
			Recurring:      views.IsRecurring(injuries, a.ID),
		})
	}
	return out, nil
}

func (s *Session) Overview() (views.TeamOverview, error) {
	if !s.actor.Role.IsStaff() {
		return views.TeamOverview{}, ErrAccessDenied
	}
	ov := views.Overview(s.athletes(), s.store.Injuries.All())
	ov.RecentInjuries = s.redact(ov.RecentInjuries)
	return ov, nil
}

// InjuryTrends is the staff analytics view for a lookback window.
type InjuryTrends struct {
	Window       views.Window          `json:"window"`
	Total        int                   `json:"total"`
	TopBodyParts []views.BodyPartCount `json:"topBodyParts"`
	Heatmap      []views.HeatCell      `json:"heatmap"`
}

func (s *Session) Trends(w views.Window) (InjuryTrends, error) {
	if !s.actor.Role.IsStaff() {
		return InjuryTrends{}, ErrAccessDenied
	}
	if w == "" {
		w = views.WindowSeason
	}
	if !w.IsValid() {
		return InjuryTrends{}, ErrInvalidInput
	}
	inWindow := views.FilterByWindow(s.store.Injuries.All(), w, s.now())
	return InjuryTrends{
		Window:       w,
		Total:        len(inWindow),
		TopBodyParts: views.TopBodyParts(inWindow, topBodyPartsShown),
		Heatmap:      views.Heatmap(inWindow),
	}, nil
}

// InjuriesAt lists the visible injuries behind one heatmap cell, using the
// same lookback window as Trends.
func (s *Session) InjuriesAt(part domain.BodyPart, w views.Window) ([]domain.InjuryRecord, error) {
	if !part.IsValid() {
		return nil, ErrInvalidInput
	}
	if w == "" {
		w = views.WindowSeason
	}
	if !w.IsValid() {
		return nil, ErrInvalidInput
	}
	inWindow := views.FilterByWindow(s.visibleInjuries(), w, s.now())
	return s.redact(views.InjuriesAt(inWindow, part)), nil
}

// Teams lists the teams the session knows about.
func (s *Session) Teams() []domain.Team {
	return s.store.Teams.All()
}
