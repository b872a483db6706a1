package domain

// Role distinguishes athletes from the staff who look after them.
type Role string

const (
	RoleAthlete Role = "ATHLETE"
	RoleCoach   Role = "COACH"
	RoleTrainer Role = "TRAINER"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAthlete, RoleCoach, RoleTrainer:
		return true
	}
	return false
}

// IsStaff is true for coaches and trainers.
func (r Role) IsStaff() bool {
	return r == RoleCoach || r == RoleTrainer
}
