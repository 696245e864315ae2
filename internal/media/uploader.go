package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const MaxUploadBytes = 8 << 20

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrNotConfigured   = errors.New("STORAGE_BUCKET is not set")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Uploader stores user images in a Firebase Storage bucket and hands back
// token download URLs that the clients can render directly.
type Uploader struct {
	client *storage.Client
	bucket string
}

func NewUploader(client *storage.Client, bucket string) *Uploader {
	return &Uploader{client: client, bucket: bucket}
}

// ObjectPath builds "<kind>/<owner>/<uuid><ext>".
func ObjectPath(kind, owner, contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	kind = strings.Trim(kind, "/")
	if kind == "" {
		kind = "uploads"
	}
	return path.Join(kind, owner, uuid.NewString()+ext), nil
}

// DownloadURL is the Firebase Storage URL for an object guarded by token.
func DownloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}

func (u *Uploader) Upload(ctx context.Context, kind, owner, contentType string, data []byte) (string, error) {
	if u == nil || u.client == nil || u.bucket == "" {
		return "", ErrNotConfigured
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	objectPath, err := ObjectPath(kind, owner, contentType)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	w := u.client.Bucket(u.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return DownloadURL(u.bucket, objectPath, token), nil
}
