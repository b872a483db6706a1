// Package status derives an athlete's overall health status from injury
// lifecycle events and enforces who may change what.
package status

import (
	"errors"

	"athletix/tracker/internal/domain"
)

var (
	ErrForbidden            = errors.New("role may not change athlete status")
	ErrStatusWriteForbidden = errors.New("athletes may not change injury status")
	ErrTreatmentForbidden   = errors.New("role may not write treatment entries")
	ErrActivityForbidden    = errors.New("role may not write this activity type")
	ErrInvalidStatus        = errors.New("invalid health status")
)

type Reason string

const (
	ReasonInjuryCreated  Reason = "injury_created"
	ReasonInjuryResolved Reason = "injury_resolved"
	ReasonOverride       Reason = "manual_override"
)

// Transition is a required change of an athlete's health status.
type Transition struct {
	AthleteID string
	To        domain.HealthStatus
	Reason    Reason
}

// OnInjuryCreated puts the athlete into recovery.
func OnInjuryCreated(athleteID string) Transition {
	return Transition{AthleteID: athleteID, To: domain.HealthRecovery, Reason: ReasonInjuryCreated}
}

// OnInjuryUpdated clears the athlete when updated was just resolved and none
// of their other injuries is still open. athleteInjuries may include updated
// itself and injuries of other athletes; both are skipped.
func OnInjuryUpdated(updated domain.InjuryRecord, athleteInjuries []domain.InjuryRecord) (Transition, bool) {
	if updated.Status != domain.InjuryResolved {
		return Transition{}, false
	}
	for _, other := range athleteInjuries {
		if other.ID == updated.ID || other.AthleteID != updated.AthleteID {
			continue
		}
		if other.Status != domain.InjuryResolved {
			return Transition{}, false
		}
	}
	return Transition{AthleteID: updated.AthleteID, To: domain.HealthHealthy, Reason: ReasonInjuryResolved}, true
}

// Override is a manual status change by staff.
func Override(actor domain.Role, athleteID string, to domain.HealthStatus) (Transition, error) {
	if !actor.IsStaff() {
		return Transition{}, ErrForbidden
	}
	if !to.IsValid() {
		return Transition{}, ErrInvalidStatus
	}
	return Transition{AthleteID: athleteID, To: to, Reason: ReasonOverride}, nil
}

// InjuryPatch describes what a write to an injury touches.
type InjuryPatch struct {
	SetsSeverity bool
	SetsStatus   bool
	// Activity is the type of an entry the actor writes by hand.
	Activity *domain.ActivityType
}

// AuthorizeInjuryPatch checks a patch against the author's role. Athletes may
// change severity and add notes. Coaches may not write treatment entries,
// which they are never shown.
func AuthorizeInjuryPatch(actor domain.Role, patch InjuryPatch) error {
	switch actor {
	case domain.RoleAthlete:
		if patch.SetsStatus {
			return ErrStatusWriteForbidden
		}
		if patch.Activity != nil {
			switch *patch.Activity {
			case domain.ActivityNote:
			case domain.ActivityTreatment:
				return ErrTreatmentForbidden
			default:
				return ErrActivityForbidden
			}
		}
	case domain.RoleCoach:
		if patch.Activity != nil && *patch.Activity == domain.ActivityTreatment {
			return ErrTreatmentForbidden
		}
	case domain.RoleTrainer:
	default:
		return ErrForbidden
	}
	return nil
}
