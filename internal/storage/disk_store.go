package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrForeignPath is returned when a public path does not belong to the store
var ErrForeignPath = errors.New("path is outside the store")

// Blob describes a file written by the store
type Blob struct {
	// Name is the generated file name on disk
	Name         string
	OriginalName string
	Size         int64
	// PublicPath is the URL path the static server exposes the blob under
	PublicPath string
}

// Ext returns the original extension without the leading dot
func (b Blob) Ext() string {
	return strings.TrimPrefix(filepath.Ext(b.OriginalName), ".")
}

// DiskStore keeps blobs in a single directory under generated names
type DiskStore struct {
	dir          string
	publicPrefix string
	logger       *zap.Logger
}

// NewDiskStore creates dir when missing. publicPrefix is the URL path the
// directory is served under, e.g. "/uploads/archives/".
func NewDiskStore(dir, publicPrefix string, logger *zap.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	if !strings.HasSuffix(publicPrefix, "/") {
		publicPrefix += "/"
	}
	return &DiskStore{
		dir:          dir,
		publicPrefix: publicPrefix,
		logger:       logger.Named("storage"),
	}, nil
}

// Save copies src to a new file named by a random UUID plus the original
// extension. The client supplied name never reaches the filesystem.
func (s *DiskStore) Save(src io.Reader, originalName string) (*Blob, error) {
	originalName = filepath.Base(filepath.Clean("/" + originalName))
	if originalName == "/" {
		originalName = "upload"
	}
	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	absPath := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(dst, src)
	if err != nil {
		_ = dst.Close()
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	s.logger.Debug("blob saved", zap.String("name", name), zap.Int64("size", size))
	return &Blob{
		Name:         name,
		OriginalName: originalName,
		Size:         size,
		PublicPath:   s.publicPrefix + name,
	}, nil
}

// Remove deletes the blob behind a public path. A blob that is already gone
// is not an error.
func (s *DiskStore) Remove(publicPath string) error {
	absPath, err := s.resolve(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", publicPath, err)
	}
	return nil
}

// Exists reports whether the blob behind a public path is on disk
func (s *DiskStore) Exists(publicPath string) bool {
	absPath, err := s.resolve(publicPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(absPath)
	return err == nil
}

func (s *DiskStore) resolve(publicPath string) (string, error) {
	if !strings.HasPrefix(publicPath, s.publicPrefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignPath, publicPath)
	}
	name := path.Base(strings.TrimPrefix(publicPath, s.publicPrefix))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: %s", ErrForeignPath, publicPath)
	}
	return filepath.Join(s.dir, name), nil
}
