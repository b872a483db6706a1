package service

import (
	"context"
	"testing"
	"time"

	"athletix/tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamService_JoinAndApprove(t *testing.T) {
	gw := newGateway(t)
	coach := profile("coach-1", "Cora", domain.RoleCoach)
	athlete := profile("ath-1", "Sam", domain.RoleAthlete)
	athlete.IsApproved = false
	seedProfiles(t, gw, coach, athlete)
	teams := NewTeamService(gw)
	ctx := context.Background()

	team, err := teams.CreateTeam(ctx, coach, TeamInput{Name: "Falcons", Sport: "Soccer", RequiresApproval: true})
	require.NoError(t, err)
	assert.Len(t, team.JoinCode, joinCodeLength)
	assert.Equal(t, "coach-1", team.CoachID)

	_, err = teams.JoinTeam(ctx, athlete, "NOPE99")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)

	joined, err := teams.JoinTeam(ctx, athlete, " "+team.JoinCode+" ")
	require.NoError(t, err)
	assert.Equal(t, team.ID, joined.TeamID)
	assert.Equal(t, "Falcons", joined.Team)
	assert.Equal(t, "Soccer", joined.Sport)
	assert.False(t, joined.IsApproved)

	pending, err := teams.ListPendingApprovals(ctx, coach)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ath-1", pending[0].ID)

	approved, err := teams.ApproveAthlete(ctx, coach, "ath-1")
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = teams.ApproveAthlete(ctx, coach, "ath-1")
	assert.ErrorIs(t, err, ErrAlreadyApproved)

	pending, err = teams.ListPendingApprovals(ctx, coach)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTeamService_JoinTeam_KeepsApproval(t *testing.T) {
	gw := newGateway(t)
	coach := profile("coach-1", "Cora", domain.RoleCoach)
	athlete := profile("ath-1", "Sam", domain.RoleAthlete)
	athlete.IsApproved = false
	seedProfiles(t, gw, coach, athlete)
	teams := NewTeamService(gw)
	ctx := context.Background()

	team, err := teams.CreateTeam(ctx, coach, TeamInput{Name: "Falcons", RequiresApproval: true})
	require.NoError(t, err)
	_, err = teams.JoinTeam(ctx, athlete, team.JoinCode)
	require.NoError(t, err)
	_, err = teams.ApproveAthlete(ctx, coach, "ath-1")
	require.NoError(t, err)

	// athlete still holds the unapproved copy from before the approval
	rejoined, err := teams.JoinTeam(ctx, athlete, team.JoinCode)
	require.NoError(t, err)
	assert.True(t, rejoined.IsApproved)
	assert.True(t, storedProfile(t, gw, "ath-1").IsApproved)

	pending, err := teams.ListPendingApprovals(ctx, coach)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTeamService_JoinCodeLimits(t *testing.T) {
	gw := newGateway(t)
	coach := profile("coach-1", "Cora", domain.RoleCoach)
	a1 := profile("ath-1", "Sam", domain.RoleAthlete)
	a2 := profile("ath-2", "Kim", domain.RoleAthlete)
	seedProfiles(t, gw, coach, a1, a2)
	svc := NewTeamService(gw).(*teamService)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, coach, TeamInput{Name: "Falcons"})
	require.NoError(t, err)

	one := 1
	rotated, err := svc.RotateJoinCode(ctx, coach, team.ID, JoinCodeLimits{MaxUses: &one})
	require.NoError(t, err)
	assert.NotEqual(t, team.JoinCode, rotated.JoinCode)

	_, err = svc.JoinTeam(ctx, a1, team.JoinCode)
	assert.ErrorIs(t, err, ErrInvalidJoinCode, "old code stops working")

	joined, err := svc.JoinTeam(ctx, a1, rotated.JoinCode)
	require.NoError(t, err)
	assert.True(t, joined.IsApproved)

	_, err = svc.JoinTeam(ctx, a2, rotated.JoinCode)
	assert.ErrorIs(t, err, ErrJoinCodeExhausted)

	expiry := time.Now().Add(time.Hour)
	rotated, err = svc.RotateJoinCode(ctx, coach, team.ID, JoinCodeLimits{ExpiresAt: &expiry})
	require.NoError(t, err)
	svc.now = func() time.Time { return expiry.Add(time.Minute) }
	_, err = svc.JoinTeam(ctx, a2, rotated.JoinCode)
	assert.ErrorIs(t, err, ErrJoinCodeExpired)
}

func TestTeamService_Permissions(t *testing.T) {
	gw := newGateway(t)
	coach := profile("coach-1", "Cora", domain.RoleCoach)
	other := profile("coach-2", "Otto", domain.RoleCoach)
	athlete := profile("ath-1", "Sam", domain.RoleAthlete)
	seedProfiles(t, gw, coach, other, athlete)
	teams := NewTeamService(gw)
	ctx := context.Background()

	_, err := teams.CreateTeam(ctx, athlete, TeamInput{Name: "Mine"})
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = teams.CreateTeam(ctx, coach, TeamInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	team, err := teams.CreateTeam(ctx, coach, TeamInput{Name: "Falcons"})
	require.NoError(t, err)
	_, err = teams.RotateJoinCode(ctx, other, team.ID, JoinCodeLimits{})
	assert.ErrorIs(t, err, ErrNotTeamCoach)

	_, err = teams.JoinTeam(ctx, coach, team.JoinCode)
	assert.ErrorIs(t, err, ErrNotAthlete)

	_, err = teams.JoinTeam(ctx, athlete, team.JoinCode)
	require.NoError(t, err)
	_, err = teams.DeclineAthlete(ctx, other, "ath-1")
	assert.ErrorIs(t, err, ErrNotTeamCoach)

	declined, err := teams.DeclineAthlete(ctx, coach, "ath-1")
	require.NoError(t, err)
	assert.Empty(t, declined.TeamID)
	assert.True(t, declined.IsApproved, "decline does not revoke an earlier approval")
	assert.Equal(t, "Sam", storedProfile(t, gw, "ath-1").Name, "profile is kept")
}
