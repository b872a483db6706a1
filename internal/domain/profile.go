package domain

import (
	"time"
)

// HealthStatus is the overall clearance state of an athlete.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "Healthy"
	HealthInjured  HealthStatus = "Injured"
	HealthRecovery HealthStatus = "Recovery"
)

func (s HealthStatus) IsValid() bool {
	switch s {
	case HealthHealthy, HealthInjured, HealthRecovery:
		return true
	}
	return false
}

// Profile represents a user of the system: an athlete, a coach or a trainer.
type Profile struct {
	ID         string       `json:"id"`
	ClientRef  string       `json:"clientRef,omitempty"`
	Email      string       `json:"email,omitempty"`
	Name       string       `json:"name"`
	Role       Role         `json:"role"`
	DOB        string       `json:"dob,omitempty"`
	AvatarURL  string       `json:"avatarUrl,omitempty"`
	IsApproved bool         `json:"isApproved"`
	TeamID     string       `json:"teamId,omitempty"`
	Sport      string       `json:"sport,omitempty"`
	Team       string       `json:"team,omitempty"`
	Year       string       `json:"year,omitempty"`
	Status     HealthStatus `json:"status,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (p Profile) IsAthlete() bool {
	return p.Role == RoleAthlete
}

// AwaitingApproval is true for athletes a coach has not approved yet.
func (p Profile) AwaitingApproval() bool {
	return p.Role == RoleAthlete && !p.IsApproved
}

func (p Profile) Key() string { return p.ID }
func (p Profile) Ref() string { return p.ClientRef }

func (p Profile) WithKey(id string) Profile {
	p.ID = id
	return p
}

func (p Profile) WithRef(ref string) Profile {
	p.ClientRef = ref
	return p
}

func (p Profile) Clone() Profile { return p }
