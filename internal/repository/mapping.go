package repository

import (
	"fmt"
	"time"

	"athletix/tracker/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
)

// Storage documents. Field names here are the storage contract; nested
// severity_history and activity_log entries keep their camelCase keys.

type profileDoc struct {
	ID         string    `bson:"id,omitempty"`
	ClientRef  string    `bson:"client_ref,omitempty"`
	Email      string    `bson:"email,omitempty" validate:"omitempty,email"`
	Name       string    `bson:"name" validate:"required"`
	Role       string    `bson:"role" validate:"required,role"`
	DOB        string    `bson:"dob,omitempty"`
	AvatarURL  string    `bson:"avatar_url,omitempty"`
	IsApproved bool      `bson:"is_approved"`
	TeamID     string    `bson:"team_id,omitempty"`
	Sport      string    `bson:"sport,omitempty"`
	Team       string    `bson:"team,omitempty"`
	Year       string    `bson:"year,omitempty"`
	Status     string    `bson:"status,omitempty" validate:"omitempty,health_status"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type credentialDoc struct {
	ID           string `bson:"id,omitempty"`
	Email        string `bson:"email" validate:"required,email"`
	PasswordHash string `bson:"password_hash" validate:"required"`
}

type severityPointDoc struct {
	Date  time.Time `bson:"date"`
	Value int       `bson:"value" validate:"min=0,max=10"`
}

type activityDoc struct {
	ID         string    `bson:"id" validate:"required"`
	AuthorName string    `bson:"authorName"`
	AuthorRole string    `bson:"authorRole" validate:"required,role"`
	Date       time.Time `bson:"date"`
	Type       string    `bson:"type" validate:"required,activity_type"`
	Content    string    `bson:"content"`
	Progress   string    `bson:"progress,omitempty" validate:"omitempty,progress"`
}

type injuryDoc struct {
	ID              string             `bson:"id,omitempty"`
	ClientRef       string             `bson:"client_ref,omitempty"`
	AthleteID       string             `bson:"athlete_id" validate:"required"`
	BodyPart        string             `bson:"body_part" validate:"required,body_part"`
	Severity        int                `bson:"severity" validate:"min=0,max=10"`
	SeverityHistory []severityPointDoc `bson:"severity_history" validate:"dive"`
	PainType        string             `bson:"pain_type"`
	Description     string             `bson:"description"`
	Status          string             `bson:"status" validate:"required,injury_status"`
	DateLogged      time.Time          `bson:"date_logged" validate:"required"`
	ActivityLog     []activityDoc      `bson:"activity_log" validate:"dive"`
}

type trainingDoc struct {
	ID              string    `bson:"id,omitempty"`
	ClientRef       string    `bson:"client_ref,omitempty"`
	AthleteID       string    `bson:"athlete_id" validate:"required"`
	Date            time.Time `bson:"date" validate:"required"`
	DurationMinutes int       `bson:"duration_minutes" validate:"min=0"`
	RPE             int       `bson:"rpe" validate:"min=1,max=10"`
	StressLevel     int       `bson:"stress_level" validate:"min=1,max=10"`
	Notes           string    `bson:"notes,omitempty"`
}

type messageDoc struct {
	ID         string    `bson:"id,omitempty"`
	ClientRef  string    `bson:"client_ref,omitempty"`
	SenderID   string    `bson:"sender_id" validate:"required"`
	ReceiverID string    `bson:"receiver_id" validate:"required"`
	Text       string    `bson:"text" validate:"required"`
	Timestamp  time.Time `bson:"timestamp" validate:"required"`
	IsRead     bool      `bson:"is_read"`
}

type teamDoc struct {
	ID                string     `bson:"id,omitempty"`
	ClientRef         string     `bson:"client_ref,omitempty"`
	Name              string     `bson:"name" validate:"required"`
	Sport             string     `bson:"sport,omitempty"`
	CoachID           string     `bson:"coach_id" validate:"required"`
	JoinCode          string     `bson:"join_code,omitempty"`
	JoinCodeExpiresAt *time.Time `bson:"join_code_expires_at,omitempty"`
	JoinCodeMaxUses   *int       `bson:"join_code_max_uses,omitempty" validate:"omitempty,min=1"`
	JoinCodeUses      int        `bson:"join_code_uses" validate:"min=0"`
	RequiresApproval  bool       `bson:"requires_approval"`
	CreatedAt         time.Time  `bson:"created_at"`
}

type medicalDoc struct {
	ID                    string    `bson:"id" validate:"required"`
	EmergencyContactName  string    `bson:"emergency_contact_name"`
	EmergencyContactPhone string    `bson:"emergency_contact_phone"`
	Medications           string    `bson:"medications"`
	Allergies             string    `bson:"allergies"`
	MedicalAllergies      string    `bson:"medical_allergies"`
	InsuranceProvider     string    `bson:"insurance_provider"`
	InsurancePolicyNumber string    `bson:"insurance_policy_number"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

// Credential is the login secret for a profile, stored apart from it so that
// profile rows never carry password hashes.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
}

func toRow(doc any) (Row, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	var row Row
	if err := bson.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return row, nil
}

func fromRow(row Row, doc any) error {
	if row == nil {
		return fmt.Errorf("%w: empty row", ErrMalformedRecord)
	}
	raw, err := bson.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := bson.Unmarshal(raw, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return nil
}

// CloneRow deep-copies a row by round-tripping it through BSON.
func CloneRow(row Row) (Row, error) {
	raw, err := bson.Marshal(row)
	if err != nil {
		return nil, err
	}
	var out Row
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RowID returns the row's identifier, or "" when it has none.
func RowID(row Row) string {
	id, _ := row[FieldID].(string)
	return id
}

func ProfileToRow(p domain.Profile) (Row, error) {
	return toRow(&profileDoc{
		ID:         p.ID,
		ClientRef:  p.ClientRef,
		Email:      p.Email,
		Name:       p.Name,
		Role:       string(p.Role),
		DOB:        p.DOB,
		AvatarURL:  p.AvatarURL,
		IsApproved: p.IsApproved,
		TeamID:     p.TeamID,
		Sport:      p.Sport,
		Team:       p.Team,
		Year:       p.Year,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	})
}

func ProfileFromRow(row Row) (domain.Profile, error) {
	var d profileDoc
	if err := fromRow(row, &d); err != nil {
		return domain.Profile{}, fmt.Errorf("profile: %w", err)
	}
	if d.ID == "" {
		return domain.Profile{}, fmt.Errorf("profile: %w: missing id", ErrMalformedRecord)
	}
	return domain.Profile{
		ID:         d.ID,
		ClientRef:  d.ClientRef,
		Email:      d.Email,
		Name:       d.Name,
		Role:       domain.Role(d.Role),
		DOB:        d.DOB,
		AvatarURL:  d.AvatarURL,
		IsApproved: d.IsApproved,
		TeamID:     d.TeamID,
		Sport:      d.Sport,
		Team:       d.Team,
		Year:       d.Year,
		Status:     domain.HealthStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func CredentialToRow(c Credential) (Row, error) {
	return toRow(&credentialDoc{ID: c.UserID, Email: c.Email, PasswordHash: c.PasswordHash})
}

func CredentialFromRow(row Row) (Credential, error) {
	var d credentialDoc
	if err := fromRow(row, &d); err != nil {
		return Credential{}, fmt.Errorf("credential: %w", err)
	}
	return Credential{UserID: d.ID, Email: d.Email, PasswordHash: d.PasswordHash}, nil
}

func severityToDocs(points []domain.SeverityPoint) []severityPointDoc {
	out := make([]severityPointDoc, len(points))
	for i, p := range points {
		out[i] = severityPointDoc{Date: p.Date, Value: p.Value}
	}
	return out
}

func severityFromDocs(docs []severityPointDoc) []domain.SeverityPoint {
	out := make([]domain.SeverityPoint, len(docs))
	for i, d := range docs {
		out[i] = domain.SeverityPoint{Date: d.Date, Value: d.Value}
	}
	return out
}

func activityToDocs(entries []domain.ActivityEntry) []activityDoc {
	out := make([]activityDoc, len(entries))
	for i, e := range entries {
		out[i] = activityDoc{
			ID:         e.ID,
			AuthorName: e.AuthorName,
			AuthorRole: string(e.AuthorRole),
			Date:       e.Date,
			Type:       string(e.Type),
			Content:    e.Content,
			Progress:   string(e.Progress),
		}
	}
	return out
}

func activityFromDocs(docs []activityDoc) []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, len(docs))
	for i, d := range docs {
		out[i] = domain.ActivityEntry{
			ID:         d.ID,
			AuthorName: d.AuthorName,
			AuthorRole: domain.Role(d.AuthorRole),
			Date:       d.Date,
			Type:       domain.ActivityType(d.Type),
			Content:    d.Content,
			Progress:   domain.Progress(d.Progress),
		}
	}
	return out
}

func InjuryToRow(i domain.InjuryRecord) (Row, error) {
	return toRow(&injuryDoc{
		ID:              i.ID,
		ClientRef:       i.ClientRef,
		AthleteID:       i.AthleteID,
		BodyPart:        string(i.BodyPart),
		Severity:        i.Severity,
		SeverityHistory: severityToDocs(i.SeverityHistory),
		PainType:        i.PainType,
		Description:     i.Description,
		Status:          string(i.Status),
		DateLogged:      i.DateLogged,
		ActivityLog:     activityToDocs(i.ActivityLog),
	})
}

func InjuryFromRow(row Row) (domain.InjuryRecord, error) {
	var d injuryDoc
	if err := fromRow(row, &d); err != nil {
		return domain.InjuryRecord{}, fmt.Errorf("injury: %w", err)
	}
	if d.ID == "" {
		return domain.InjuryRecord{}, fmt.Errorf("injury: %w: missing id", ErrMalformedRecord)
	}
	return domain.InjuryRecord{
		ID:              d.ID,
		ClientRef:       d.ClientRef,
		AthleteID:       d.AthleteID,
		BodyPart:        domain.BodyPart(d.BodyPart),
		Severity:        d.Severity,
		SeverityHistory: severityFromDocs(d.SeverityHistory),
		PainType:        d.PainType,
		Description:     d.Description,
		Status:          domain.InjuryStatus(d.Status),
		DateLogged:      d.DateLogged,
		ActivityLog:     activityFromDocs(d.ActivityLog),
	}, nil
}

func TrainingToRow(t domain.TrainingRecord) (Row, error) {
	return toRow(&trainingDoc{
		ID:              t.ID,
		ClientRef:       t.ClientRef,
		AthleteID:       t.AthleteID,
		Date:            t.Date,
		DurationMinutes: t.DurationMinutes,
		RPE:             t.RPE,
		StressLevel:     t.StressLevel,
		Notes:           t.Notes,
	})
}

func TrainingFromRow(row Row) (domain.TrainingRecord, error) {
	var d trainingDoc
	if err := fromRow(row, &d); err != nil {
		return domain.TrainingRecord{}, fmt.Errorf("training log: %w", err)
	}
	if d.ID == "" {
		return domain.TrainingRecord{}, fmt.Errorf("training log: %w: missing id", ErrMalformedRecord)
	}
	return domain.TrainingRecord{
		ID:              d.ID,
		ClientRef:       d.ClientRef,
		AthleteID:       d.AthleteID,
		Date:            d.Date,
		DurationMinutes: d.DurationMinutes,
		RPE:             d.RPE,
		StressLevel:     d.StressLevel,
		Notes:           d.Notes,
	}, nil
}

func MessageToRow(m domain.Message) (Row, error) {
	return toRow(&messageDoc{
		ID:         m.ID,
		ClientRef:  m.ClientRef,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	})
}

func MessageFromRow(row Row) (domain.Message, error) {
	var d messageDoc
	if err := fromRow(row, &d); err != nil {
		return domain.Message{}, fmt.Errorf("message: %w", err)
	}
	if d.ID == "" {
		return domain.Message{}, fmt.Errorf("message: %w: missing id", ErrMalformedRecord)
	}
	return domain.Message{
		ID:         d.ID,
		ClientRef:  d.ClientRef,
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Text:       d.Text,
		Timestamp:  d.Timestamp,
		IsRead:     d.IsRead,
	}, nil
}

func TeamToRow(t domain.Team) (Row, error) {
	return toRow(&teamDoc{
		ID:                t.ID,
		ClientRef:         t.ClientRef,
		Name:              t.Name,
		Sport:             t.Sport,
		CoachID:           t.CoachID,
		JoinCode:          t.JoinCode,
		JoinCodeExpiresAt: t.JoinCodeExpiresAt,
		JoinCodeMaxUses:   t.JoinCodeMaxUses,
		JoinCodeUses:      t.JoinCodeUses,
		RequiresApproval:  t.RequiresApproval,
		CreatedAt:         t.CreatedAt,
	})
}

func TeamFromRow(row Row) (domain.Team, error) {
	var d teamDoc
	if err := fromRow(row, &d); err != nil {
		return domain.Team{}, fmt.Errorf("team: %w", err)
	}
	if d.ID == "" {
		return domain.Team{}, fmt.Errorf("team: %w: missing id", ErrMalformedRecord)
	}
	return domain.Team{
		ID:                d.ID,
		ClientRef:         d.ClientRef,
		Name:              d.Name,
		Sport:             d.Sport,
		CoachID:           d.CoachID,
		JoinCode:          d.JoinCode,
		JoinCodeExpiresAt: d.JoinCodeExpiresAt,
		JoinCodeMaxUses:   d.JoinCodeMaxUses,
		JoinCodeUses:      d.JoinCodeUses,
		RequiresApproval:  d.RequiresApproval,
		CreatedAt:         d.CreatedAt,
	}, nil
}

func MedicalToRow(m domain.MedicalRecord) (Row, error) {
	return toRow(&medicalDoc{
		ID:                    m.UserID,
		EmergencyContactName:  m.EmergencyContactName,
		EmergencyContactPhone: m.EmergencyContactPhone,
		Medications:           m.Medications,
		Allergies:             m.Allergies,
		MedicalAllergies:      m.MedicalAllergies,
		InsuranceProvider:     m.InsuranceProvider,
		InsurancePolicyNumber: m.InsurancePolicyNumber,
		UpdatedAt:             m.UpdatedAt,
	})
}

func MedicalFromRow(row Row) (domain.MedicalRecord, error) {
	var d medicalDoc
	if err := fromRow(row, &d); err != nil {
		return domain.MedicalRecord{}, fmt.Errorf("medical record: %w", err)
	}
	return domain.MedicalRecord{
		UserID:                d.ID,
		EmergencyContactName:  d.EmergencyContactName,
		EmergencyContactPhone: d.EmergencyContactPhone,
		Medications:           d.Medications,
		Allergies:             d.Allergies,
		MedicalAllergies:      d.MedicalAllergies,
		InsuranceProvider:     d.InsuranceProvider,
		InsurancePolicyNumber: d.InsurancePolicyNumber,
		UpdatedAt:             d.UpdatedAt,
	}, nil
}
