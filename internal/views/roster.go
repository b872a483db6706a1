package views

import (
	"sort"
	"strings"

	"athletix/tracker/internal/domain"
)

// RosterFilter selects which athletes a staff roster shows.
type RosterFilter string

const (
	RosterAll           RosterFilter = "ALL"
	RosterInjuredActive RosterFilter = "INJURED_ACTIVE"
	RosterNotCleared    RosterFilter = "NOT_CLEARED"
	RosterRecurring     RosterFilter = "RECURRING"
)

func (f RosterFilter) IsValid() bool {
	switch f {
	case RosterAll, RosterInjuredActive, RosterNotCleared, RosterRecurring:
		return true
	}
	return false
}

// FilterRoster applies the filter and a case-insensitive name or sport search.
func FilterRoster(athletes []domain.Profile, injuries []domain.InjuryRecord, filter RosterFilter, search string) []domain.Profile {
	q := strings.ToLower(strings.TrimSpace(search))
	var out []domain.Profile
	for _, a := range athletes {
		if q != "" &&
			!strings.Contains(strings.ToLower(a.Name), q) &&
			!strings.Contains(strings.ToLower(a.Sport), q) {
			continue
		}
		switch filter {
		case RosterInjuredActive:
			if a.Status != domain.HealthRecovery {
				continue
			}
		case RosterNotCleared:
			if a.Status != domain.HealthInjured {
				continue
			}
		case RosterRecurring:
			if !IsRecurring(injuries, a.ID) {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// TeamOverview is the summary shown at the top of a staff dashboard.
type TeamOverview struct {
	Athletes       int                   `json:"athletes"`
	NotCleared     int                   `json:"notCleared"`
	InRecovery     int                   `json:"inRecovery"`
	ActiveInjuries int                   `json:"activeInjuries"`
	Priority       []domain.Profile      `json:"priority"`
	RecentInjuries []domain.InjuryRecord `json:"recentInjuries"`
}

const recentInjuriesShown = 5

// Overview summarizes the roster. Priority athletes are those in recovery or
// with a recurring injury.
func Overview(athletes []domain.Profile, injuries []domain.InjuryRecord) TeamOverview {
	ov := TeamOverview{Athletes: len(athletes), ActiveInjuries: len(ActiveInjuries(injuries))}
	for _, a := range athletes {
		switch a.Status {
		case domain.HealthInjured:
			ov.NotCleared++
		case domain.HealthRecovery:
			ov.InRecovery++
		}
		if a.Status == domain.HealthRecovery || IsRecurring(injuries, a.ID) {
			ov.Priority = append(ov.Priority, a)
		}
	}

	recent := append([]domain.InjuryRecord(nil), injuries...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].DateLogged.After(recent[j].DateLogged)
	})
	if len(recent) > recentInjuriesShown {
		recent = recent[:recentInjuriesShown]
	}
	ov.RecentInjuries = recent
	return ov
}
