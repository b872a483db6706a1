package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

const (
	tokenIssuer      = "athletix"
	minPasswordChars = 6
	defaultAvatarURL = "https://ui-avatars.com/api/?background=random&name="
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Sport    string
	Year     string
	DOB      string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (domain.Profile, error)
	Login(ctx context.Context, email, password string) (token string, profile domain.Profile, err error)
	// RestoreProfile reloads a signed-in user's profile. ErrProfileNotFound
	// means the account is gone and the client must sign out. An athlete
	// awaiting approval gets their profile together with ErrApprovalPending.
	RestoreProfile(ctx context.Context, userID string) (domain.Profile, error)
	GetJWTSecret() string
}

// Claims is the JWT payload.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	gateway       repository.Gateway
	jwtSecret     string
	jwtExpiration time.Duration
	now           func() time.Time
}

func NewAuthService(gateway repository.Gateway, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		gateway:       gateway,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the login credential and the profile. Athletes start
// Healthy and wait for coach approval; staff are approved immediately.
func (s *authService) Register(ctx context.Context, in RegisterInput) (domain.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" || in.Role == "" {
		return domain.Profile{}, fmt.Errorf("%w: name, email, password and role are required", ErrInvalidInput)
	}
	if !in.Role.IsValid() {
		return domain.Profile{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if len(in.Password) < minPasswordChars {
		return domain.Profile{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordChars)
	}

	_, err := s.credentialByEmail(ctx, email)
	if err == nil {
		return domain.Profile{}, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Profile{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, ErrHashingFailed
	}

	// the credential and the profile share the user id
	userID := uuid.NewString()
	credRow, err := repository.CredentialToRow(repository.Credential{UserID: userID, Email: email, PasswordHash: string(hash)})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.gateway.Insert(ctx, repository.TableCredentials, credRow); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return domain.Profile{}, ErrUserAlreadyExists
		}
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	now := s.now()
	profile := domain.Profile{
		ID:         userID,
		Email:      email,
		Name:       name,
		Role:       in.Role,
		DOB:        in.DOB,
		AvatarURL:  defaultAvatarURL + url.QueryEscape(name),
		IsApproved: in.Role != domain.RoleAthlete,
		Sport:      strings.TrimSpace(in.Sport),
		Year:       strings.TrimSpace(in.Year),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.Role == domain.RoleAthlete {
		profile.Status = domain.HealthHealthy
	}

	row, err := repository.ProfileToRow(profile)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	saved, err := s.gateway.Insert(ctx, repository.TableProfiles, row)
	if err != nil {
		log.WithField("user", userID).Errorf("profile insert failed after credential insert: %s", err)
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return repository.ProfileFromRow(saved)
}

// Login checks the password and issues a JWT.
func (s *authService) Login(ctx context.Context, email, password string) (string, domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", domain.Profile{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	cred, err := s.credentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.Profile{}, ErrAuthenticationFailed
		}
		return "", domain.Profile{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", domain.Profile{}, ErrAuthenticationFailed
	}

	profile, err := fetchProfile(ctx, s.gateway, cred.UserID)
	if err != nil {
		return "", domain.Profile{}, err
	}

	token, err := s.generateJWT(profile)
	if err != nil {
		return "", domain.Profile{}, ErrTokenGeneration
	}
	return token, profile, nil
}

func (s *authService) RestoreProfile(ctx context.Context, userID string) (domain.Profile, error) {
	profile, err := fetchProfile(ctx, s.gateway, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile.AwaitingApproval() {
		return profile, ErrApprovalPending
	}
	return profile, nil
}

func (s *authService) credentialByEmail(ctx context.Context, email string) (repository.Credential, error) {
	rows, err := s.gateway.Query(ctx, repository.TableCredentials, repository.Eq("email", email), nil)
	if err != nil {
		return repository.Credential{}, err
	}
	if len(rows) == 0 {
		return repository.Credential{}, repository.ErrNotFound
	}
	return repository.CredentialFromRow(rows[0])
}

func (s *authService) generateJWT(p domain.Profile) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: p.ID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
