package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

const avatarPrefix = "avatars/"

var ErrUnsupportedContentType = errors.New("unsupported avatar content type")

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// FileStorage is the object store used for profile avatars.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a PUT of
	// objectKey with the given content type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	DeleteObject(ctx context.Context, objectKey string) error

	// ObjectURL is the stable public URL of an object.
	ObjectURL(objectKey string) string
}

// AvatarObjectKey builds a fresh object key for a user's avatar upload.
func AvatarObjectKey(userID, contentType string) (string, error) {
	ext, ok := avatarExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return fmt.Sprintf("%s%s/%s.%s", avatarPrefix, userID, uuid.NewString(), ext), nil
}

// IsAvatarKeyOf reports whether objectKey lies in the user's avatar folder.
func IsAvatarKeyOf(userID, objectKey string) bool {
	prefix := avatarPrefix + userID + "/"
	return strings.HasPrefix(objectKey, prefix) && len(objectKey) > len(prefix) && !strings.Contains(objectKey, "..")
}

// ObjectKeyFromURL recovers the object key from a URL built by ObjectURL.
func ObjectKeyFromURL(fs FileStorage, objectURL string) (string, bool) {
	prefix := fs.ObjectURL("")
	if objectURL == "" || !strings.HasPrefix(objectURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(objectURL, prefix), true
}
