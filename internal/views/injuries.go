// Package views computes the read-only projections shown on dashboards.
// Every function is pure: inputs are never modified and the current time is
// always passed in.
package views

import (
	"sort"
	"time"

	"athletix/tracker/internal/domain"
)

// Window is a lookback period ending now.
type Window string

const (
	WindowWeek   Window = "week"
	WindowMonth  Window = "month"
	WindowSeason Window = "season"
)

func (w Window) IsValid() bool {
	switch w {
	case WindowWeek, WindowMonth, WindowSeason:
		return true
	}
	return false
}

// Cutoff is the earliest instant inside the window. A season is six calendar months.
func (w Window) Cutoff(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	default:
		return now.AddDate(0, -6, 0)
	}
}

// FilterByWindow keeps injuries logged at or after the window's cutoff.
func FilterByWindow(injuries []domain.InjuryRecord, w Window, now time.Time) []domain.InjuryRecord {
	cutoff := w.Cutoff(now)
	var out []domain.InjuryRecord
	for _, inj := range injuries {
		if !inj.DateLogged.Before(cutoff) {
			out = append(out, inj)
		}
	}
	return out
}

// RecurringBodyParts returns the body parts with more than one injury for the
// athlete, in first-seen order.
func RecurringBodyParts(injuries []domain.InjuryRecord, athleteID string) []domain.BodyPart {
	counts := make(map[domain.BodyPart]int)
	var order []domain.BodyPart
	for _, inj := range injuries {
		if inj.AthleteID != athleteID {
			continue
		}
		if counts[inj.BodyPart] == 0 {
			order = append(order, inj.BodyPart)
		}
		counts[inj.BodyPart]++
	}
	var out []domain.BodyPart
	for _, part := range order {
		if counts[part] > 1 {
			out = append(out, part)
		}
	}
	return out
}

func IsRecurring(injuries []domain.InjuryRecord, athleteID string) bool {
	return len(RecurringBodyParts(injuries, athleteID)) > 0
}

type BodyPartCount struct {
	BodyPart domain.BodyPart `json:"bodyPart"`
	Count    int             `json:"count"`
}

// TopBodyParts returns at most n body parts ordered by injury count,
// descending. Ties keep the order in which the parts first appear.
func TopBodyParts(injuries []domain.InjuryRecord, n int) []BodyPartCount {
	counts := countByBodyPart(injuries)
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func countByBodyPart(injuries []domain.InjuryRecord) []BodyPartCount {
	idx := make(map[domain.BodyPart]int)
	var counts []BodyPartCount
	for _, inj := range injuries {
		i, ok := idx[inj.BodyPart]
		if !ok {
			i = len(counts)
			idx[inj.BodyPart] = i
			counts = append(counts, BodyPartCount{BodyPart: inj.BodyPart})
		}
		counts[i].Count++
	}
	return counts
}

// ActiveInjuries are those not yet resolved.
func ActiveInjuries(injuries []domain.InjuryRecord) []domain.InjuryRecord {
	var out []domain.InjuryRecord
	for _, inj := range injuries {
		if !inj.IsResolved() {
			out = append(out, inj)
		}
	}
	return out
}

func ResolvedInjuries(injuries []domain.InjuryRecord) []domain.InjuryRecord {
	var out []domain.InjuryRecord
	for _, inj := range injuries {
		if inj.IsResolved() {
			out = append(out, inj)
		}
	}
	return out
}

// ForAthlete keeps the injuries of one athlete, newest first.
func ForAthlete(injuries []domain.InjuryRecord, athleteID string) []domain.InjuryRecord {
	var out []domain.InjuryRecord
	for _, inj := range injuries {
		if inj.AthleteID == athleteID {
			out = append(out, inj)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateLogged.After(out[j].DateLogged)
	})
	return out
}

// InjuriesAt keeps the injuries logged against one body part.
func InjuriesAt(injuries []domain.InjuryRecord, part domain.BodyPart) []domain.InjuryRecord {
	var out []domain.InjuryRecord
	for _, inj := range injuries {
		if inj.BodyPart == part {
			out = append(out, inj)
		}
	}
	return out
}

type HeatLevel string

const (
	HeatNone HeatLevel = "none"
	HeatLow  HeatLevel = "low"
	HeatHigh HeatLevel = "high"
)

type HeatCell struct {
	BodyPart domain.BodyPart `json:"bodyPart"`
	Count    int             `json:"count"`
	Level    HeatLevel       `json:"level"`
}

// Heatmap returns one cell per body part, in display order.
func Heatmap(injuries []domain.InjuryRecord) []HeatCell {
	counts := make(map[domain.BodyPart]int)
	for _, inj := range injuries {
		counts[inj.BodyPart]++
	}
	out := make([]HeatCell, 0, len(domain.BodyParts))
	for _, part := range domain.BodyParts {
		n := counts[part]
		level := HeatNone
		switch {
		case n >= 2:
			level = HeatHigh
		case n == 1:
			level = HeatLow
		}
		out = append(out, HeatCell{BodyPart: part, Count: n, Level: level})
	}
	return out
}

// SortedActivity returns an injury's activity log newest first.
func SortedActivity(inj domain.InjuryRecord) []domain.ActivityEntry {
	return domain.SortActivityNewestFirst(inj.ActivityLog)
}
