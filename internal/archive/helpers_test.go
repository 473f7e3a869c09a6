package archive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBlobs struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (f *fakeBlobs) Remove(publicPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, publicPath)
	return f.err
}

// tickingClock advances one minute per call so creation order is visible
// in date_modified
func tickingClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(db, nil)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeBlobs) {
	t.Helper()
	blobs := &fakeBlobs{}
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	return NewService(newTestStore(t), blobs, zap.NewNop(), opts...), blobs
}

func mkFolder(t *testing.T, svc *Service, owner int64, parent *int64, name string) int64 {
	t.Helper()
	node, err := svc.Create(context.Background(), CreateRequest{
		OwnerID:  owner,
		ParentID: parent,
		Name:     name,
		IsFolder: true,
	})
	require.NoError(t, err)
	return node.ID
}

func mkFile(t *testing.T, svc *Service, owner int64, parent *int64, name string) int64 {
	t.Helper()
	node, err := svc.Create(context.Background(), CreateRequest{
		OwnerID:  owner,
		ParentID: parent,
		Name:     name,
		Blob:     testBlob(name),
	})
	require.NoError(t, err)
	return node.ID
}

func testBlob(name string) *storage.Blob {
	return &storage.Blob{
		Name:         "gen-" + name,
		OriginalName: name,
		Size:         int64(len(name)),
		PublicPath:   PublicPrefix + "gen-" + name,
	}
}

func ptr(id int64) *int64 { return &id }

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
