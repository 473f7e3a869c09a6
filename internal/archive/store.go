package archive

import (
	"context"
	"errors"
	"strings"

	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/db_model"
	"gorm.io/gorm"
)

// Store is the persistence the archive service needs. Every method is
// scoped to a single owner.
type Store interface {
	Create(ctx context.Context, node *db_model.ArchiveNode) error
	Get(ctx context.Context, ownerID, id int64) (*db_model.ArchiveNode, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	// Children returns the direct children of any of parentIDs
	Children(ctx context.Context, ownerID int64, parentIDs []int64) ([]db_model.ArchiveNode, error)
	DeleteByIDs(ctx context.Context, ownerID int64, ids []int64) (int64, error)
	// Transaction runs fn against a Store bound to one database transaction
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// maxInParams keeps IN lists below driver parameter limits
const maxInParams = 500

// GormStore implements Store on top of GORM
type GormStore struct {
	db    *gorm.DB
	guard *database.Guard
}

// NewGormStore creates a store. guard may be nil.
func NewGormStore(db *gorm.DB, guard *database.Guard) *GormStore {
	return &GormStore{db: db, guard: guard}
}

func (s *GormStore) Create(ctx context.Context, node *db_model.ArchiveNode) error {
	return s.guard.Write(ctx, "archive.create", func() error {
		return s.db.WithContext(ctx).Create(node).Error
	})
}

func (s *GormStore) Get(ctx context.Context, ownerID, id int64) (*db_model.ArchiveNode, error) {
	var node db_model.ArchiveNode
	err := s.guard.Read(ctx, "archive.get", func() error {
		return s.db.WithContext(ctx).
			Where("id = ? AND owner_id = ?", id, ownerID).
			First(&node).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *GormStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var rows []entryRow
	err := s.guard.Read(ctx, "archive.list", func() error {
		rows = nil
		q := s.db.WithContext(ctx).
			Table("archive_nodes AS a").
			Select(`a.id, a.name, a.is_folder, a.file_path, a.file_size, a.file_type, a.date_modified,
				(SELECT COUNT(*) FROM archive_nodes c WHERE c.parent_id = a.id AND c.owner_id = a.owner_id) AS child_count`).
			Where("a.owner_id = ?", filter.OwnerID)

		if filter.ParentID == nil {
			q = q.Where("a.parent_id IS NULL")
		} else {
			q = q.Where("a.parent_id = ?", *filter.ParentID)
		}
		if filter.Search != "" {
			q = q.Where(`LOWER(a.name) LIKE LOWER(?) ESCAPE '\'`, "%"+escapeLike(filter.Search)+"%")
		}

		return q.Order("a.is_folder DESC, a.date_modified DESC, a.id DESC").Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (s *GormStore) Children(ctx context.Context, ownerID int64, parentIDs []int64) ([]db_model.ArchiveNode, error) {
	var children []db_model.ArchiveNode
	for _, chunk := range chunkIDs(parentIDs) {
		var batch []db_model.ArchiveNode
		err := s.guard.Read(ctx, "archive.children", func() error {
			return s.db.WithContext(ctx).
				Where("owner_id = ? AND parent_id IN ?", ownerID, chunk).
				Find(&batch).Error
		})
		if err != nil {
			return nil, err
		}
		children = append(children, batch...)
	}
	return children, nil
}

func (s *GormStore) DeleteByIDs(ctx context.Context, ownerID int64, ids []int64) (int64, error) {
	var deleted int64
	for _, chunk := range chunkIDs(ids) {
		err := s.guard.Write(ctx, "archive.delete", func() error {
			res := s.db.WithContext(ctx).
				Where("owner_id = ? AND id IN ?", ownerID, chunk).
				Delete(&db_model.ArchiveNode{})
			deleted += res.RowsAffected
			return res.Error
		})
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Transaction retries nothing inside the transaction, the whole unit goes
// through the breaker once.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.guard.Write(ctx, "archive.tx", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&GormStore{db: tx})
		})
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func chunkIDs(ids []int64) [][]int64 {
	var chunks [][]int64
	for len(ids) > maxInParams {
		chunks = append(chunks, ids[:maxInParams])
		ids = ids[maxInParams:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
