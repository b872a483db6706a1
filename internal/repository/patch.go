package repository

import (
	"time"

	"athletix/tracker/internal/domain"
)

// InjuryPatch lists the injury fields an update may change. Nil fields are left alone.
type InjuryPatch struct {
	Severity        *int
	Status          *domain.InjuryStatus
	SeverityHistory []domain.SeverityPoint
	ActivityLog     []domain.ActivityEntry
}

type injuryPatchDoc struct {
	Severity        *int               `bson:"severity,omitempty" validate:"omitempty,min=0,max=10"`
	Status          *string            `bson:"status,omitempty" validate:"omitempty,injury_status"`
	SeverityHistory []severityPointDoc `bson:"severity_history,omitempty" validate:"dive"`
	ActivityLog     []activityDoc      `bson:"activity_log,omitempty" validate:"dive"`
}

func (p InjuryPatch) Row() (Row, error) {
	d := injuryPatchDoc{Severity: p.Severity}
	if p.Status != nil {
		s := string(*p.Status)
		d.Status = &s
	}
	if p.SeverityHistory != nil {
		d.SeverityHistory = severityToDocs(p.SeverityHistory)
	}
	if p.ActivityLog != nil {
		d.ActivityLog = activityToDocs(p.ActivityLog)
	}
	return toRow(&d)
}

// ProfilePatch lists the profile fields an update may change.
// A non-nil pointer to "" clears a string field.
type ProfilePatch struct {
	Status     *domain.HealthStatus
	IsApproved *bool
	TeamID     *string
	Team       *string
	Sport      *string
	AvatarURL  *string
	UpdatedAt  time.Time
}

type profilePatchDoc struct {
	Status     *string   `bson:"status,omitempty" validate:"omitempty,health_status"`
	IsApproved *bool     `bson:"is_approved,omitempty"`
	TeamID     *string   `bson:"team_id,omitempty"`
	Team       *string   `bson:"team,omitempty"`
	Sport      *string   `bson:"sport,omitempty"`
	AvatarURL  *string   `bson:"avatar_url,omitempty"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (p ProfilePatch) Row() (Row, error) {
	d := profilePatchDoc{
		IsApproved: p.IsApproved,
		TeamID:     p.TeamID,
		Team:       p.Team,
		Sport:      p.Sport,
		AvatarURL:  p.AvatarURL,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.Status != nil {
		s := string(*p.Status)
		d.Status = &s
	}
	return toRow(&d)
}

// MessageReadPatch marks a message as read.
func MessageReadPatch() Row {
	return Row{"is_read": true}
}

// TeamJoinCodePatch replaces a team's join code and resets its use counter.
// Nil limits are cleared.
func TeamJoinCodePatch(code string, expiresAt *time.Time, maxUses *int) Row {
	row := Row{
		"join_code":            code,
		"join_code_uses":       0,
		"join_code_expires_at": nil,
		"join_code_max_uses":   nil,
	}
	if expiresAt != nil {
		row["join_code_expires_at"] = *expiresAt
	}
	if maxUses != nil {
		row["join_code_max_uses"] = *maxUses
	}
	return row
}

func TeamUsesPatch(uses int) Row {
	return Row{"join_code_uses": uses}
}
