package domain

import "time"

const (
	MinRPE = 1
	MaxRPE = 10
)

// TrainingRecord is one logged training session.
type TrainingRecord struct {
	ID              string    `json:"id"`
	ClientRef       string    `json:"clientRef,omitempty"`
	AthleteID       string    `json:"athleteId"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"durationMinutes"`
	RPE             int       `json:"rpe"`
	StressLevel     int       `json:"stressLevel"`
	Notes           string    `json:"notes,omitempty"`
}

// Load is the session training load: duration in minutes times RPE.
func (t TrainingRecord) Load() int {
	return t.DurationMinutes * t.RPE
}

func (t TrainingRecord) Key() string { return t.ID }
func (t TrainingRecord) Ref() string { return t.ClientRef }

func (t TrainingRecord) WithKey(id string) TrainingRecord {
	t.ID = id
	return t
}

func (t TrainingRecord) WithRef(ref string) TrainingRecord {
	t.ClientRef = ref
	return t
}

func (t TrainingRecord) Clone() TrainingRecord { return t }
