package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/repository"

	log "github.com/sirupsen/logrus"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrNotTeamCoach      = errors.New("only the team's coach may do this")
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrJoinCodeExpired   = errors.New("join code has expired")
	ErrJoinCodeExhausted = errors.New("join code has reached its use limit")
	ErrAlreadyApproved   = errors.New("athlete is already approved")
	ErrNotAthlete        = errors.New("user is not an athlete")
	ErrCodeGeneration    = errors.New("failed to generate a unique join code")
)

const (
	joinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeAttempts = 5
)

type TeamInput struct {
	Name             string
	Sport            string
	RequiresApproval bool
}

// JoinCodeLimits are the optional restrictions set when a code is rotated.
type JoinCodeLimits struct {
	ExpiresAt *time.Time
	MaxUses   *int
}

type TeamService interface {
	CreateTeam(ctx context.Context, coach domain.Profile, in TeamInput) (domain.Team, error)
	RotateJoinCode(ctx context.Context, coach domain.Profile, teamID string, limits JoinCodeLimits) (domain.Team, error)
	JoinTeam(ctx context.Context, athlete domain.Profile, code string) (domain.Profile, error)
	ListPendingApprovals(ctx context.Context, coach domain.Profile) ([]domain.Profile, error)
	ApproveAthlete(ctx context.Context, coach domain.Profile, athleteID string) (domain.Profile, error)
	DeclineAthlete(ctx context.Context, coach domain.Profile, athleteID string) (domain.Profile, error)
}

type teamService struct {
	gateway repository.Gateway
	now     func() time.Time
}

func NewTeamService(gateway repository.Gateway) TeamService {
	return &teamService{
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func newJoinCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := 0; i < joinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// uniqueJoinCode draws codes until one is not used by any team.
func (s *teamService) uniqueJoinCode(ctx context.Context) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code, err := newJoinCode()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
		}
		rows, err := s.gateway.Query(ctx, repository.TableTeams, repository.Eq("join_code", code), nil)
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

func (s *teamService) CreateTeam(ctx context.Context, coach domain.Profile, in TeamInput) (domain.Team, error) {
	if coach.Role != domain.RoleCoach {
		return domain.Team{}, ErrAccessDenied
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return domain.Team{}, err
	}
	row, err := repository.TeamToRow(domain.Team{
		Name:             name,
		Sport:            strings.TrimSpace(in.Sport),
		CoachID:          coach.ID,
		JoinCode:         code,
		RequiresApproval: in.RequiresApproval,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return domain.Team{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	saved, err := s.gateway.Insert(ctx, repository.TableTeams, row)
	if err != nil {
		return domain.Team{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return repository.TeamFromRow(saved)
}

func (s *teamService) ownedTeam(ctx context.Context, coach domain.Profile, teamID string) (domain.Team, error) {
	rows, err := s.gateway.Query(ctx, repository.TableTeams, repository.Eq(repository.FieldID, teamID), nil)
	if err != nil {
		return domain.Team{}, err
	}
	if len(rows) == 0 {
		return domain.Team{}, ErrTeamNotFound
	}
	team, err := repository.TeamFromRow(rows[0])
	if err != nil {
		return domain.Team{}, err
	}
	if team.CoachID != coach.ID {
		return domain.Team{}, ErrNotTeamCoach
	}
	return team, nil
}

// RotateJoinCode replaces the team's code. Old codes stop working at once and
// the use counter starts over.
func (s *teamService) RotateJoinCode(ctx context.Context, coach domain.Profile, teamID string, limits JoinCodeLimits) (domain.Team, error) {
	if _, err := s.ownedTeam(ctx, coach, teamID); err != nil {
		return domain.Team{}, err
	}
	if limits.MaxUses != nil && *limits.MaxUses < 1 {
		return domain.Team{}, fmt.Errorf("%w: max uses must be at least 1", ErrInvalidInput)
	}
	if limits.ExpiresAt != nil && !limits.ExpiresAt.After(s.now()) {
		return domain.Team{}, fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}

	code, err := s.uniqueJoinCode(ctx)
	if err != nil {
		return domain.Team{}, err
	}
	saved, err := s.gateway.Update(ctx, repository.TableTeams, teamID,
		repository.TeamJoinCodePatch(code, limits.ExpiresAt, limits.MaxUses))
	if err != nil {
		return domain.Team{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return repository.TeamFromRow(saved)
}

// JoinTeam attaches the athlete to the team owning code. Joining a team that
// requires approval leaves an unapproved athlete unapproved until its coach
// acts. An approved athlete stays approved.
func (s *teamService) JoinTeam(ctx context.Context, athlete domain.Profile, code string) (domain.Profile, error) {
	if athlete.Role != domain.RoleAthlete {
		return domain.Profile{}, ErrNotAthlete
	}
	// the caller's copy may predate an approval
	athlete, err := fetchProfile(ctx, s.gateway, athlete.ID)
	if err != nil {
		return domain.Profile{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Profile{}, ErrInvalidJoinCode
	}

	rows, err := s.gateway.Query(ctx, repository.TableTeams, repository.Eq("join_code", code), nil)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(rows) == 0 {
		return domain.Profile{}, ErrInvalidJoinCode
	}
	team, err := repository.TeamFromRow(rows[0])
	if err != nil {
		return domain.Profile{}, err
	}
	if team.JoinCodeExpired(s.now()) {
		return domain.Profile{}, ErrJoinCodeExpired
	}
	if team.JoinCodeExhausted() {
		return domain.Profile{}, ErrJoinCodeExhausted
	}

	patch := repository.ProfilePatch{
		TeamID:    &team.ID,
		Team:      &team.Name,
		UpdatedAt: s.now(),
	}
	if !athlete.IsApproved && !team.RequiresApproval {
		approved := true
		patch.IsApproved = &approved
	}
	if athlete.Sport == "" && team.Sport != "" {
		patch.Sport = &team.Sport
	}
	saved, err := s.updateProfile(ctx, athlete.ID, patch)
	if err != nil {
		return domain.Profile{}, err
	}

	// TODO: move the use counter to an atomic $inc so concurrent joins cannot undercount
	if _, err := s.gateway.Update(ctx, repository.TableTeams, team.ID, repository.TeamUsesPatch(team.JoinCodeUses+1)); err != nil {
		log.WithFields(log.Fields{"team": team.ID, "athlete": athlete.ID}).Errorf("failed to count join code use: %s", err)
	}
	return saved, nil
}

func (s *teamService) coachTeamIDs(ctx context.Context, coach domain.Profile) ([]any, error) {
	if coach.Role != domain.RoleCoach {
		return nil, ErrAccessDenied
	}
	rows, err := s.gateway.Query(ctx, repository.TableTeams, repository.Eq("coach_id", coach.ID), nil)
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, repository.RowID(r))
	}
	return ids, nil
}

// ListPendingApprovals lists unapproved athletes on the coach's teams.
func (s *teamService) ListPendingApprovals(ctx context.Context, coach domain.Profile) ([]domain.Profile, error) {
	ids, err := s.coachTeamIDs(ctx, coach)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}

	f := repository.In("team_id", ids...)
	f.Equals = map[string]any{"is_approved": false, "role": string(domain.RoleAthlete)}
	rows, err := s.gateway.Query(ctx, repository.TableProfiles, f, &repository.Order{Field: "created_at"})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Profile, 0, len(rows))
	for _, r := range rows {
		p, err := repository.ProfileFromRow(r)
		if err != nil {
			log.WithField("id", repository.RowID(r)).Warnf("skipping malformed profile: %s", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *teamService) teamAthlete(ctx context.Context, coach domain.Profile, athleteID string) (domain.Profile, error) {
	athlete, err := fetchProfile(ctx, s.gateway, athleteID)
	if err != nil {
		return domain.Profile{}, err
	}
	if !athlete.IsAthlete() {
		return domain.Profile{}, ErrNotAthlete
	}
	if athlete.TeamID == "" {
		return domain.Profile{}, ErrNotTeamCoach
	}
	if _, err := s.ownedTeam(ctx, coach, athlete.TeamID); err != nil {
		return domain.Profile{}, err
	}
	return athlete, nil
}

// ApproveAthlete flips the athlete's approval flag. It succeeds once.
func (s *teamService) ApproveAthlete(ctx context.Context, coach domain.Profile, athleteID string) (domain.Profile, error) {
	athlete, err := s.teamAthlete(ctx, coach, athleteID)
	if err != nil {
		return domain.Profile{}, err
	}
	if athlete.IsApproved {
		return domain.Profile{}, ErrAlreadyApproved
	}
	approved := true
	return s.updateProfile(ctx, athleteID, repository.ProfilePatch{IsApproved: &approved, UpdatedAt: s.now()})
}

// DeclineAthlete detaches the athlete from the team. The account stays.
func (s *teamService) DeclineAthlete(ctx context.Context, coach domain.Profile, athleteID string) (domain.Profile, error) {
	if _, err := s.teamAthlete(ctx, coach, athleteID); err != nil {
		return domain.Profile{}, err
	}
	empty := ""
	return s.updateProfile(ctx, athleteID, repository.ProfilePatch{
		TeamID:    &empty,
		Team:      &empty,
		UpdatedAt: s.now(),
	})
}

func (s *teamService) updateProfile(ctx context.Context, id string, patch repository.ProfilePatch) (domain.Profile, error) {
	row, err := patch.Row()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	saved, err := s.gateway.Update(ctx, repository.TableProfiles, id, row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, ErrProfileNotFound
		}
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return repository.ProfileFromRow(saved)
}
