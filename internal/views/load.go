package views

import (
	"fmt"
	"sort"
	"time"

	"athletix/tracker/internal/domain"
)

const LoadWeeks = 6

// WeekBucket aggregates one week of training load and new injuries.
// A record belongs to the bucket when Start < date <= End.
type WeekBucket struct {
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Load     int       `json:"load"`
	Injuries int       `json:"injuries"`
}

// WeeklyLoad splits the six weeks ending at now into buckets, oldest first.
// Records outside that range contribute nothing.
func WeeklyLoad(training []domain.TrainingRecord, injuries []domain.InjuryRecord, now time.Time) []WeekBucket {
	buckets := make([]WeekBucket, 0, LoadWeeks)
	for i := LoadWeeks - 1; i >= 0; i-- {
		// calendar days: a DST change in now's zone does not move the edges
		end := now.AddDate(0, 0, -7*i)
		buckets = append(buckets, WeekBucket{
			Label: fmt.Sprintf("%d/%d", int(end.Month()), end.Day()),
			Start: end.AddDate(0, 0, -7),
			End:   end,
		})
	}

	for _, tr := range training {
		if b := bucketFor(buckets, tr.Date); b != nil {
			b.Load += tr.Load()
		}
	}
	for _, inj := range injuries {
		if b := bucketFor(buckets, inj.DateLogged); b != nil {
			b.Injuries++
		}
	}
	return buckets
}

func bucketFor(buckets []WeekBucket, t time.Time) *WeekBucket {
	for i := range buckets {
		if t.After(buckets[i].Start) && !t.After(buckets[i].End) {
			return &buckets[i]
		}
	}
	return nil
}

// RecentTraining returns up to n training records, newest first.
func RecentTraining(training []domain.TrainingRecord, n int) []domain.TrainingRecord {
	out := append([]domain.TrainingRecord(nil), training...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
