package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/storage"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidObjectKey = errors.New("object key does not belong to this user")

// AvatarUpload is a presigned PUT for a new avatar image.
type AvatarUpload struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProfileService interface {
	GetMedical(ctx context.Context, actor domain.Profile, userID string) (domain.MedicalRecord, error)
	SaveMedical(ctx context.Context, actor domain.Profile, rec domain.MedicalRecord) (domain.MedicalRecord, error)
	RequestAvatarUpload(ctx context.Context, actor domain.Profile, contentType string) (AvatarUpload, error)
	UpdateAvatar(ctx context.Context, actor domain.Profile, objectKey string) (domain.Profile, error)
}

type profileService struct {
	gateway repository.Gateway
	files   storage.FileStorage
	now     func() time.Time
}

// NewProfileService wires the medical record table and avatar storage. files
// may be nil, in which case avatar uploads are unavailable.
func NewProfileService(gateway repository.Gateway, files storage.FileStorage) ProfileService {
	return &profileService{
		gateway: gateway,
		files:   files,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetMedical returns a user's medical record. Users read their own; staff
// read any athlete's. A user with no record yet gets an empty one.
func (s *profileService) GetMedical(ctx context.Context, actor domain.Profile, userID string) (domain.MedicalRecord, error) {
	if actor.ID != userID && !actor.Role.IsStaff() {
		return domain.MedicalRecord{}, ErrAccessDenied
	}

	rows, err := s.gateway.Query(ctx, repository.TableMedicalRecords, repository.Eq(repository.FieldID, userID), nil)
	if err != nil {
		return domain.MedicalRecord{}, err
	}
	if len(rows) == 0 {
		return domain.MedicalRecord{UserID: userID}, nil
	}
	return repository.MedicalFromRow(rows[0])
}

// SaveMedical writes the actor's own medical record, creating it on first save.
func (s *profileService) SaveMedical(ctx context.Context, actor domain.Profile, rec domain.MedicalRecord) (domain.MedicalRecord, error) {
	if rec.UserID == "" {
		rec.UserID = actor.ID
	}
	if rec.UserID != actor.ID {
		return domain.MedicalRecord{}, ErrAccessDenied
	}
	rec.UpdatedAt = s.now()

	row, err := repository.MedicalToRow(rec)
	if err != nil {
		return domain.MedicalRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	patch, err := repository.CloneRow(row)
	if err != nil {
		return domain.MedicalRecord{}, err
	}
	delete(patch, repository.FieldID)

	saved, err := s.gateway.Update(ctx, repository.TableMedicalRecords, rec.UserID, patch)
	if errors.Is(err, repository.ErrNotFound) {
		saved, err = s.gateway.Insert(ctx, repository.TableMedicalRecords, row)
	}
	if err != nil {
		return domain.MedicalRecord{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return repository.MedicalFromRow(saved)
}

func (s *profileService) RequestAvatarUpload(ctx context.Context, actor domain.Profile, contentType string) (AvatarUpload, error) {
	if s.files == nil {
		return AvatarUpload{}, errors.New("avatar storage is not configured")
	}
	key, err := storage.AvatarObjectKey(actor.ID, contentType)
	if err != nil {
		return AvatarUpload{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	expires := storage.DefaultPresignedURLExpiry
	url, err := s.files.GeneratePresignedUploadURL(ctx, key, contentType, expires)
	if err != nil {
		return AvatarUpload{}, err
	}
	return AvatarUpload{UploadURL: url, ObjectKey: key, ExpiresAt: s.now().Add(expires)}, nil
}

// UpdateAvatar points the profile at an uploaded object.
func (s *profileService) UpdateAvatar(ctx context.Context, actor domain.Profile, objectKey string) (domain.Profile, error) {
	if s.files == nil {
		return domain.Profile{}, errors.New("avatar storage is not configured")
	}
	if !storage.IsAvatarKeyOf(actor.ID, objectKey) {
		return domain.Profile{}, ErrInvalidObjectKey
	}

	current, err := fetchProfile(ctx, s.gateway, actor.ID)
	if err != nil {
		return domain.Profile{}, err
	}

	avatarURL := s.files.ObjectURL(objectKey)
	row, err := repository.ProfilePatch{AvatarURL: &avatarURL, UpdatedAt: s.now()}.Row()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	saved, err := s.gateway.Update(ctx, repository.TableProfiles, actor.ID, row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, ErrProfileNotFound
		}
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	log.WithField("user", actor.ID).Debugf("avatar updated to %s", objectKey)

	s.deleteReplacedAvatar(ctx, actor.ID, current.AvatarURL, objectKey)
	return repository.ProfileFromRow(saved)
}

// deleteReplacedAvatar removes the user's previous uploaded avatar. Generated
// avatars live elsewhere and are left alone. Delete failures are only logged.
func (s *profileService) deleteReplacedAvatar(ctx context.Context, userID, previousURL, newKey string) {
	oldKey, ok := storage.ObjectKeyFromURL(s.files, previousURL)
	if !ok || oldKey == newKey || !storage.IsAvatarKeyOf(userID, oldKey) {
		return
	}
	if err := s.files.DeleteObject(ctx, oldKey); err != nil {
		log.WithFields(log.Fields{"user": userID, "key": oldKey}).Warnf("failed to delete replaced avatar: %s", err)
	}
}
