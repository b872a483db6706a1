package domain

import "time"

// MedicalRecord holds the sensitive per-user data kept apart from the profile.
// Its ID is the owning user's profile ID.
type MedicalRecord struct {
	UserID                string    `json:"userId"`
	EmergencyContactName  string    `json:"emergencyContactName"`
	EmergencyContactPhone string    `json:"emergencyContactPhone"`
	Medications           string    `json:"medications"`
	Allergies             string    `json:"allergies"`
	MedicalAllergies      string    `json:"medicalAllergies"`
	InsuranceProvider     string    `json:"insuranceProvider"`
	InsurancePolicyNumber string    `json:"insurancePolicyNumber"`
	UpdatedAt             time.Time `json:"updatedAt"`
}
