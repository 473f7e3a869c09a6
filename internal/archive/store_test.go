package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaibs3/careportal/internal/db_model"
	"github.com/shaibs3/careportal/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestChunkIDs(t *testing.T) {
	ids := make([]int64, maxInParams*2+1)
	chunks := chunkIDs(ids)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], maxInParams)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, chunkIDs(nil))
}

func TestGormStore_ChildrenAndDeleteAreOwnerScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := &db_model.ArchiveNode{OwnerID: alice, Name: "p", IsFolder: true}
	require.NoError(t, store.Create(ctx, parent))
	mine := &db_model.ArchiveNode{OwnerID: alice, ParentID: &parent.ID, Name: "mine", IsFolder: true}
	require.NoError(t, store.Create(ctx, mine))
	// a foreign row pointing at alice's folder
	foreign := &db_model.ArchiveNode{OwnerID: bob, ParentID: &parent.ID, Name: "theirs", IsFolder: true}
	require.NoError(t, store.Create(ctx, foreign))

	children, err := store.Children(ctx, alice, []int64{parent.ID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, mine.ID, children[0].ID)

	n, err := store.DeleteByIDs(ctx, alice, []int64{foreign.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.Get(ctx, bob, foreign.ID)
	require.NoError(t, err)
	_, err = store.Get(ctx, alice, foreign.ID)
	require.ErrorIs(t, err, ErrNodeNotFound)

	entries, err := store.List(ctx, ListFilter{OwnerID: alice})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ChildCount, "child_count ignores other owners")
}

func TestGormStore_ListSearchIsUnicodeCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Ärztebriefe", "ÉCOLE", "plain"} {
		require.NoError(t, store.Create(ctx, &db_model.ArchiveNode{OwnerID: alice, Name: name, IsFolder: true}))
	}

	for search, want := range map[string]string{"Ärzte": "Ärztebriefe", "ärzte": "Ärztebriefe", "école": "ÉCOLE"} {
		entries, err := store.List(ctx, ListFilter{OwnerID: alice, Search: search})
		require.NoError(t, err)
		require.Len(t, entries, 1, "search %q", search)
		assert.Equal(t, want, entries[0].Name)
	}
}

func TestGormStore_TransactionRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx Store) error {
		require.NoError(t, tx.Create(ctx, &db_model.ArchiveNode{OwnerID: alice, Name: "temp", IsFolder: true}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := store.List(ctx, ListFilter{OwnerID: alice})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMetrics_ExportedThroughTelemetry(t *testing.T) {
	tel, err := telemetry.NewTelemetry(zap.NewNop())
	require.NoError(t, err)
	metrics, err := NewMetrics(tel.Meter)
	require.NoError(t, err)

	blobs := &fakeBlobs{err: errors.New("busy")}
	svc := NewService(newTestStore(t), blobs, zap.NewNop(), WithMetrics(metrics), WithClock(tickingClock()))
	id := mkFile(t, svc, alice, nil, "a.txt")
	_, err = svc.Delete(context.Background(), DeleteRequest{OwnerID: alice, ID: id})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	tel.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, "careportal_archive_nodes_created_total")
	assert.Contains(t, body, "careportal_archive_nodes_deleted_total")
	assert.Contains(t, body, "careportal_archive_blob_unlink_failures_total")
}
