package domain

import (
	"sort"
	"time"
)

// BodyPart is the anatomical region an injury is logged against.
// The value is the display string, which is also what gets persisted.
type BodyPart string

const (
	BodyPartHead      BodyPart = "Head"
	BodyPartShoulderL BodyPart = "Left Shoulder"
	BodyPartShoulderR BodyPart = "Right Shoulder"
	BodyPartChest     BodyPart = "Chest"
	BodyPartAbdomen   BodyPart = "Abdomen"
	BodyPartBack      BodyPart = "Back"
	BodyPartHip       BodyPart = "Hip"
	BodyPartArmL      BodyPart = "Left Arm"
	BodyPartArmR      BodyPart = "Right Arm"
	BodyPartLegL      BodyPart = "Left Leg"
	BodyPartLegR      BodyPart = "Right Leg"
	BodyPartKneeL     BodyPart = "Left Knee"
	BodyPartKneeR     BodyPart = "Right Knee"
	BodyPartAnkleL    BodyPart = "Left Ankle"
	BodyPartAnkleR    BodyPart = "Right Ankle"
	BodyPartFootL     BodyPart = "Left Foot"
	BodyPartFootR     BodyPart = "Right Foot"
)

// BodyParts lists every body part in display order.
var BodyParts = []BodyPart{
	BodyPartHead,
	BodyPartShoulderL, BodyPartShoulderR,
	BodyPartChest, BodyPartAbdomen, BodyPartBack, BodyPartHip,
	BodyPartArmL, BodyPartArmR,
	BodyPartLegL, BodyPartLegR,
	BodyPartKneeL, BodyPartKneeR,
	BodyPartAnkleL, BodyPartAnkleR,
	BodyPartFootL, BodyPartFootR,
}

func (b BodyPart) IsValid() bool {
	for _, p := range BodyParts {
		if p == b {
			return true
		}
	}
	return false
}

// Common pain descriptions offered when reporting. PainType itself is free text.
var PainTypes = []string{"Sharp", "Dull / Ache", "Throbbing", "Burning", "Stiffness", "Tingling / Numbness"}

const (
	MinSeverity = 0
	MaxSeverity = 10
)

// InjuryStatus is the lifecycle state of a single injury.
type InjuryStatus string

const (
	InjuryActive     InjuryStatus = "Active"
	InjuryRecovering InjuryStatus = "Recovering"
	InjuryResolved   InjuryStatus = "Resolved"
)

func (s InjuryStatus) IsValid() bool {
	switch s {
	case InjuryActive, InjuryRecovering, InjuryResolved:
		return true
	}
	return false
}

type ActivityType string

const (
	ActivityTreatment    ActivityType = "Treatment"
	ActivityNote         ActivityType = "Note"
	ActivityStatusUpdate ActivityType = "Status Update"
)

func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityTreatment, ActivityNote, ActivityStatusUpdate:
		return true
	}
	return false
}

type Progress string

const (
	ProgressBetter Progress = "Better"
	ProgressSame   Progress = "Same"
	ProgressWorse  Progress = "Worse"
)

func (p Progress) IsValid() bool {
	switch p {
	case ProgressBetter, ProgressSame, ProgressWorse:
		return true
	}
	return false
}

// ProgressFor derives the trend from a severity change. Lower is better.
func ProgressFor(oldSeverity, newSeverity int) Progress {
	switch {
	case newSeverity < oldSeverity:
		return ProgressBetter
	case newSeverity > oldSeverity:
		return ProgressWorse
	default:
		return ProgressSame
	}
}

type SeverityPoint struct {
	Date  time.Time `json:"date"`
	Value int       `json:"value"`
}

// ActivityEntry is one item in an injury's treatment log.
type ActivityEntry struct {
	ID         string       `json:"id"`
	AuthorName string       `json:"authorName"`
	AuthorRole Role         `json:"authorRole"`
	Date       time.Time    `json:"date"`
	Type       ActivityType `json:"type"`
	Content    string       `json:"content"`
	Progress   Progress     `json:"progress,omitempty"`
}

// InjuryRecord is a single injury logged for an athlete.
type InjuryRecord struct {
	ID              string          `json:"id"`
	ClientRef       string          `json:"clientRef,omitempty"`
	AthleteID       string          `json:"athleteId"`
	BodyPart        BodyPart        `json:"bodyPart"`
	Severity        int             `json:"severity"`
	SeverityHistory []SeverityPoint `json:"severityHistory"`
	PainType        string          `json:"painType"`
	Description     string          `json:"description"`
	Status          InjuryStatus    `json:"status"`
	DateLogged      time.Time       `json:"dateLogged"`
	ActivityLog     []ActivityEntry `json:"activityLog"`
}

func (i InjuryRecord) IsResolved() bool {
	return i.Status == InjuryResolved
}

func (i InjuryRecord) Key() string { return i.ID }
func (i InjuryRecord) Ref() string { return i.ClientRef }

func (i InjuryRecord) WithKey(id string) InjuryRecord {
	i.ID = id
	return i
}

func (i InjuryRecord) WithRef(ref string) InjuryRecord {
	i.ClientRef = ref
	return i
}

// Clone copies the record including its history and activity slices.
func (i InjuryRecord) Clone() InjuryRecord {
	out := i
	out.SeverityHistory = append([]SeverityPoint(nil), i.SeverityHistory...)
	out.ActivityLog = append([]ActivityEntry(nil), i.ActivityLog...)
	return out
}

// SortActivityNewestFirst orders entries by date, newest first, keeping the
// relative order of entries with equal dates.
func SortActivityNewestFirst(entries []ActivityEntry) []ActivityEntry {
	out := append([]ActivityEntry(nil), entries...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date.After(out[b].Date)
	})
	return out
}
