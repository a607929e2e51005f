// Package media stores uploaded videos and profile pictures on local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"clipshare/internal/models"

	"github.com/google/uuid"
)

// Kind selects the directory and accepted formats of an upload.
type Kind string

const (
	KindVideo          Kind = "videos"
	KindProfilePicture Kind = "profile_pictures"
)

// Rejection messages for unsupported uploads.
const (
	MsgInvalidVideo = "Invalid video file!"
	MsgInvalidImage = "Invalid image file!"
	MsgInvalidFile  = "fileId is invalid!"
)

var (
	accepted = map[Kind]map[string]string{
		KindVideo: {
			"video/mp4":        "mp4",
			"video/mkv":        "mkv",
			"video/x-matroska": "mkv",
		},
		KindProfilePicture: {
			"image/png":  "png",
			"image/jpg":  "jpg",
			"image/jpeg": "jpeg",
		},
	}
	fileIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(mp4|mkv|png|jpg|jpeg)$`)
)

// Store writes uploads under Root and serves them below BaseURL.
type Store struct {
	root    string
	baseURL string
}

// NewStore prepares one directory per Kind under root.
func NewStore(root, baseURL string) (*Store, error) {
	if root == "" {
		return nil, errors.New("media directory not configured")
	}
	for kind := range accepted {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory uploads are written to.
func (s *Store) Root() string {
	return s.root
}

// Save writes r as a new file of kind and returns its file id.
// contentType must be one of the formats accepted for kind.
func (s *Store) Save(kind Kind, contentType string, r io.Reader) (string, error) {
	ext, ok := extension(kind, contentType)
	if !ok {
		if kind == KindVideo {
			return "", models.NewValidationError(MsgInvalidVideo)
		}
		return "", models.NewValidationError(MsgInvalidImage)
	}

	dir := filepath.Join(s.root, string(kind))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", models.NewInternalError(err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return "", models.NewInternalError(err)
	}
	if err := tmp.Close(); err != nil {
		return "", models.NewInternalError(err)
	}

	fileID := uuid.NewString() + "." + ext
	if err := os.Rename(tmp.Name(), filepath.Join(dir, fileID)); err != nil {
		return "", models.NewInternalError(err)
	}
	return fileID, nil
}

// Exists reports whether fileID is a stored file of kind.
func (s *Store) Exists(kind Kind, fileID string) bool {
	path, ok := s.path(kind, fileID)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(kind Kind, fileID string) error {
	path, ok := s.path(kind, fileID)
	if !ok {
		return models.NewValidationError(MsgInvalidFile)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.NewInternalError(err)
	}
	return nil
}

// URL returns the public address of a stored file.
func (s *Store) URL(kind Kind, fileID string) string {
	return s.baseURL + "/" + string(kind) + "/" + fileID
}

// SaveTo returns the store-relative path reported to clients after an upload.
func (s *Store) SaveTo(kind Kind, fileID string) string {
	return string(kind) + "/" + fileID
}

// FileIDFromURL extracts the file id from an address produced by URL.
func (s *Store) FileIDFromURL(kind Kind, url string) (string, bool) {
	fileID, ok := strings.CutPrefix(url, s.baseURL+"/"+string(kind)+"/")
	if !ok || !fileIDPattern.MatchString(fileID) {
		return "", false
	}
	return fileID, true
}

func (s *Store) path(kind Kind, fileID string) (string, bool) {
	if _, known := accepted[kind]; !known || !fileIDPattern.MatchString(fileID) {
		return "", false
	}
	ext := strings.TrimPrefix(filepath.Ext(fileID), ".")
	for _, allowed := range accepted[kind] {
		if allowed == ext {
			return filepath.Join(s.root, string(kind), fileID), true
		}
	}
	return "", false
}

func extension(kind Kind, contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	ext, ok := accepted[kind][strings.ToLower(mediaType)]
	return ext, ok
}
