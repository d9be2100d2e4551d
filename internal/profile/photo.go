package profile

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talenorix/candidate-portal/internal/backend"
	"github.com/talenorix/candidate-portal/internal/status"
)

const (
	// PhotoBucket holds candidate profile photos.
	PhotoBucket = "candidate-photos"
	// MaxPhotoBytes is the upload size cap.
	MaxPhotoBytes = int64(2.5 * 1024 * 1024)
	// SignedURLTTL bounds how long a photo preview link stays valid.
	SignedURLTTL = time.Hour
)

// allowed upload types and their storage extensions.
var photoExts = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Photo manages the profile photo: one object per user at
// <userID>/profile.<ext>, with the same path mirrored into
// candidate_profiles.photo_path (no bucket prefix).
type Photo struct {
	bucket   backend.Storage
	table    backend.Table
	userID   string
	reporter status.Reporter

	busy atomic.Bool
}

// NewPhoto builds the photo module over the client's photo bucket and the
// candidate singleton table.
func NewPhoto(client backend.Client, userID string, reporter status.Reporter) *Photo {
	return &Photo{
		bucket:   client.Bucket(PhotoBucket),
		table:    client.Table(TableCandidate),
		userID:   userID,
		reporter: reporter,
	}
}

// ExtForMIME returns the storage extension for an allowed content type,
// "" for anything else.
func ExtForMIME(contentType string) string {
	return photoExts[strings.ToLower(strings.TrimSpace(contentType))]
}

func (p *Photo) key(ext string) string {
	return p.userID + "/profile." + ext
}

// variantKeys lists every extension a previous upload may have used.
func (p *Photo) variantKeys() []string {
	return []string{
		p.userID + "/profile.jpg",
		p.userID + "/profile.jpeg",
		p.userID + "/profile.png",
		p.userID + "/profile.webp",
	}
}

// Upload validates, stores, and records a new photo. Older variants under
// other extensions are removed first, best-effort. If the database write
// fails after the object landed, the object is removed so storage and
// database cannot drift apart. Returns the stored path.
func (p *Photo) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return "", nil
	}
	defer p.busy.Store(false)

	if int64(len(data)) > MaxPhotoBytes {
		status.Reportf(p.reporter, status.Error, "File too large. Maximum is 2.5 MB.")
		return "", fmt.Errorf("photo exceeds %d bytes", MaxPhotoBytes)
	}
	ext := ExtForMIME(contentType)
	if ext == "" {
		status.Reportf(p.reporter, status.Error, "Type not allowed. Only JPG, PNG, or WEBP.")
		return "", fmt.Errorf("unsupported photo type %q", contentType)
	}

	status.Reportf(p.reporter, status.Info, "Uploading photo…")

	// Old photo under any extension goes first; failures here are harmless.
	_ = p.bucket.Remove(ctx, p.variantKeys())

	key := p.key(ext)
	if err := p.bucket.Upload(ctx, key, data, contentType); err != nil {
		status.Reportf(p.reporter, status.Error, "Error uploading photo: %s", backend.Stringify(err))
		return "", err
	}

	row := backend.Row{"user_id": p.userID, "photo_path": key}
	if _, err := p.table.Upsert(ctx, []backend.Row{row}, "user_id"); err != nil {
		// Do not leave an orphan object behind a failed record.
		_ = p.bucket.Remove(ctx, []string{key})
		status.Reportf(p.reporter, status.Error, "Error saving photo record: %s", backend.Stringify(err))
		return "", err
	}

	status.Reportf(p.reporter, status.Success, "Photo uploaded.")
	return key, nil
}

// Remove deletes the stored photo and clears photo_path. When the database
// has no path, leftover variants are still swept from the bucket.
func (p *Photo) Remove(ctx context.Context) error {
	if !p.busy.CompareAndSwap(false, true) {
		return nil
	}
	defer p.busy.Store(false)

	status.Reportf(p.reporter, status.Info, "Removing photo…")

	key, err := p.currentPath(ctx)
	if err != nil {
		status.Reportf(p.reporter, status.Error, "Error reading photo record: %s", backend.Stringify(err))
		return err
	}
	if key != "" {
		_ = p.bucket.Remove(ctx, []string{key})
	} else {
		_ = p.bucket.Remove(ctx, p.variantKeys())
	}

	row := backend.Row{"user_id": p.userID, "photo_path": nil}
	if _, err := p.table.Upsert(ctx, []backend.Row{row}, "user_id"); err != nil {
		status.Reportf(p.reporter, status.Error, "Error updating photo record: %s", backend.Stringify(err))
		return err
	}

	status.Reportf(p.reporter, status.Success, "Photo removed.")
	return nil
}

// SignedURL returns a time-limited link to the current photo, or "" when no
// photo is stored.
func (p *Photo) SignedURL(ctx context.Context) (string, error) {
	key, err := p.currentPath(ctx)
	if err != nil {
		return "", err
	}
	if key == "" {
		status.Reportf(p.reporter, status.Info, "No photo uploaded yet.")
		return "", nil
	}
	url, err := p.bucket.CreateSignedURL(ctx, key, SignedURLTTL)
	if err != nil {
		status.Reportf(p.reporter, status.Error, "Photo exists but no signed URL could be created.")
		return "", err
	}
	return url, nil
}

// currentPath reads photo_path from the singleton row, stripped of any
// legacy bucket prefix.
func (p *Photo) currentPath(ctx context.Context) (string, error) {
	row, err := p.table.SelectSingle(ctx, backend.Query{
		Columns: []string{"photo_path"},
	}.Eq("user_id", p.userID))
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}
	path, _ := row["photo_path"].(string)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	path = strings.TrimPrefix(path, PhotoBucket+"/")
	return path, nil
}
