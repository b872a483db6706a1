package repository

import (
	"errors"
	"testing"
	"time"

	"athletix/tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// BSON dates carry millisecond precision, so fixtures stay on whole seconds.
var day = time.Date(2025, 4, 10, 8, 30, 0, 0, time.UTC)

func fullInjury() domain.InjuryRecord {
	return domain.InjuryRecord{
		ID:              "inj-1",
		ClientRef:       "ref-1",
		AthleteID:       "ath-1",
		BodyPart:        domain.BodyPartAnkleL,
		Severity:        7,
		SeverityHistory: []domain.SeverityPoint{{Date: day, Value: 8}, {Date: day.Add(24 * time.Hour), Value: 7}},
		PainType:        "Throbbing",
		Description:     "rolled it",
		Status:          domain.InjuryRecovering,
		DateLogged:      day,
		ActivityLog: []domain.ActivityEntry{
			{ID: "act-1", AuthorName: "Tess", AuthorRole: domain.RoleTrainer, Date: day, Type: domain.ActivityTreatment, Content: "taped", Progress: domain.ProgressWorse},
			{ID: "act-2", AuthorName: "Sam", AuthorRole: domain.RoleAthlete, Date: day, Type: domain.ActivityNote, Content: "hurts"},
		},
	}
}

func TestInjuryMapping_RoundTrip(t *testing.T) {
	in := fullInjury()
	row, err := InjuryToRow(in)
	require.NoError(t, err)

	for _, key := range []string{"id", "client_ref", "athlete_id", "body_part", "severity", "severity_history", "pain_type", "description", "status", "date_logged", "activity_log"} {
		assert.Contains(t, row, key)
	}

	out, err := InjuryFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestInjuryMapping_NestedKeysStayCamelCase(t *testing.T) {
	row, err := InjuryToRow(fullInjury())
	require.NoError(t, err)

	log, ok := row["activity_log"].(bson.A)
	require.True(t, ok)
	raw, err := bson.Marshal(log[0])
	require.NoError(t, err)
	var entry bson.M
	require.NoError(t, bson.Unmarshal(raw, &entry))
	assert.Contains(t, entry, "authorName")
	assert.Contains(t, entry, "authorRole")
	assert.NotContains(t, entry, "author_name")
}

func TestInjuryMapping_RejectsMalformed(t *testing.T) {
	base, err := InjuryToRow(fullInjury())
	require.NoError(t, err)

	cases := map[string]func(Row){
		"missing id":        func(r Row) { delete(r, "id") },
		"unknown body part": func(r Row) { r["body_part"] = "Tail" },
		"severity too high": func(r Row) { r["severity"] = 11 },
		"severity as text":  func(r Row) { r["severity"] = "high" },
		"bad status":        func(r Row) { r["status"] = "Healed" },
		"missing athlete":   func(r Row) { delete(r, "athlete_id") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row, err := CloneRow(base)
			require.NoError(t, err)
			mutate(row)
			_, err = InjuryFromRow(row)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
		})
	}
}

func TestProfileMapping_RoundTrip(t *testing.T) {
	in := domain.Profile{
		ID: "p-1", ClientRef: "r", Email: "sam@example.com", Name: "Sam Hill", Role: domain.RoleAthlete,
		DOB: "2004-02-01", AvatarURL: "https://img/x.png", IsApproved: true, TeamID: "t-1",
		Sport: "Soccer", Team: "Varsity", Year: "Junior", Status: domain.HealthRecovery,
		CreatedAt: day, UpdatedAt: day.Add(time.Hour),
	}
	row, err := ProfileToRow(in)
	require.NoError(t, err)
	assert.Equal(t, true, row["is_approved"])
	assert.Equal(t, "t-1", row["team_id"])
	assert.NotContains(t, row, "password_hash")

	out, err := ProfileFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTrainingAndMessageMapping_RoundTrip(t *testing.T) {
	tr := domain.TrainingRecord{ID: "tr-1", ClientRef: "r", AthleteID: "a", Date: day, DurationMinutes: 60, RPE: 7, StressLevel: 3, Notes: "tempo"}
	row, err := TrainingToRow(tr)
	require.NoError(t, err)
	assert.Contains(t, row, "duration_minutes")
	assert.Contains(t, row, "stress_level")
	gotTr, err := TrainingFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, tr, gotTr)

	msg := domain.Message{ID: "m-1", ClientRef: "r", SenderID: "a", ReceiverID: "b", Text: "hi", Timestamp: day, IsRead: true}
	row, err = MessageToRow(msg)
	require.NoError(t, err)
	assert.Equal(t, "a", row["sender_id"])
	gotMsg, err := MessageFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, msg, gotMsg)
}

func TestTeamMapping_OptionalLimits(t *testing.T) {
	exp := day.Add(48 * time.Hour)
	max := 5
	in := domain.Team{ID: "t-1", Name: "Varsity", Sport: "Soccer", CoachID: "c-1", JoinCode: "AB12CD",
		JoinCodeExpiresAt: &exp, JoinCodeMaxUses: &max, JoinCodeUses: 2, RequiresApproval: true, CreatedAt: day}
	row, err := TeamToRow(in)
	require.NoError(t, err)
	out, err := TeamFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// a rotation that clears the limits stores nulls
	for k, v := range TeamJoinCodePatch("ZZ99ZZ", nil, nil) {
		row[k] = v
	}
	out, err = TeamFromRow(row)
	require.NoError(t, err)
	assert.Nil(t, out.JoinCodeExpiresAt)
	assert.Nil(t, out.JoinCodeMaxUses)
	assert.Equal(t, 0, out.JoinCodeUses)
	assert.Equal(t, "ZZ99ZZ", out.JoinCode)
}

func TestInjuryPatch_OnlySetFields(t *testing.T) {
	sev := 3
	row, err := InjuryPatch{Severity: &sev}.Row()
	require.NoError(t, err)
	assert.Len(t, row, 1)
	assert.Contains(t, row, "severity")

	bad := 12
	_, err = InjuryPatch{Severity: &bad}.Row()
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestProfilePatch_ClearsTeam(t *testing.T) {
	empty := ""
	row, err := ProfilePatch{TeamID: &empty, Team: &empty, UpdatedAt: day}.Row()
	require.NoError(t, err)
	assert.Equal(t, "", row["team_id"])
	assert.Equal(t, "", row["team"])
	assert.NotContains(t, row, "status")
}
