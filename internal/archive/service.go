package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shaibs3/careportal/internal/apperror"
	"github.com/shaibs3/careportal/internal/db_model"
	"go.uber.org/zap"
)

const DefaultMaxDepth = 256

// BlobRemover deletes stored blobs by their public path
type BlobRemover interface {
	Remove(publicPath string) error
}

// Service implements the archive tree operations
type Service struct {
	store          Store
	blobs          BlobRemover
	logger         *zap.Logger
	metrics        *Metrics
	validateParent bool
	maxDepth       int
	now            func() time.Time
}

type Option func(*Service)

// WithParentValidation controls whether a parent id must name a folder the
// caller owns. When off the id is stored as given.
func WithParentValidation(enabled bool) Option {
	return func(s *Service) { s.validateParent = enabled }
}

// WithMaxDepth bounds how many levels a recursive delete walks
func WithMaxDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, blobs BlobRemover, logger *zap.Logger, opts ...Option) *Service {
	metrics, _ := NewMetrics(nil)
	s := &Service{
		store:          store,
		blobs:          blobs,
		logger:         logger.Named("archive"),
		metrics:        metrics,
		validateParent: true,
		maxDepth:       DefaultMaxDepth,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts one folder or file row. A folder request ignores any blob.
// The blob of a file request must already be on disk.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*db_model.ArchiveNode, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errMissingName()
	}

	node := &db_model.ArchiveNode{
		OwnerID:      req.OwnerID,
		ParentID:     req.ParentID,
		Name:         req.Name,
		IsFolder:     true,
		DateModified: s.now().UTC().Truncate(time.Second),
	}
	if !req.IsFolder {
		if req.Blob == nil {
			return nil, errMissingBlob()
		}
		path, size, ext := req.Blob.PublicPath, req.Blob.Size, req.Blob.Ext()
		node.IsFolder = false
		node.Name = req.Blob.OriginalName
		node.FilePath = &path
		node.FileSize = &size
		node.FileType = &ext
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		if req.ParentID != nil && s.validateParent {
			if err := s.checkParent(ctx, tx, req.OwnerID, *req.ParentID); err != nil {
				return err
			}
		}
		return tx.Create(ctx, node)
	})
	if err != nil {
		return nil, s.wrap("create", err)
	}

	s.metrics.nodeCreated(ctx, node.IsFolder)
	s.logger.Debug("archive node created",
		zap.Int64("id", node.ID),
		zap.Int64("owner_id", node.OwnerID),
		zap.Bool("is_folder", node.IsFolder))
	return node, nil
}

func (s *Service) checkParent(ctx context.Context, tx Store, ownerID, parentID int64) error {
	parent, err := tx.Get(ctx, ownerID, parentID)
	if errors.Is(err, ErrNodeNotFound) {
		return errParentNotFound()
	}
	if err != nil {
		return err
	}
	if !parent.IsFolder {
		return errParentNotFound()
	}
	return nil
}

// List returns the caller's direct children of filter.ParentID, folders
// first, newest first. An unknown parent yields an empty list.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return entries, nil
}

// Delete removes a node. A folder with children is only removed when
// req.Recursive is set, together with its whole subtree. Rows go in one
// transaction, blobs are unlinked after it commits.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) (*DeleteResult, error) {
	var (
		result DeleteResult
		blobs  []string
	)

	err := s.store.Transaction(ctx, func(tx Store) error {
		target, err := tx.Get(ctx, req.OwnerID, req.ID)
		if errors.Is(err, ErrNodeNotFound) {
			return errNotFound()
		}
		if err != nil {
			return err
		}

		result = DeleteResult{Folder: target.IsFolder, Recursive: target.IsFolder && req.Recursive}

		children, err := tx.Children(ctx, req.OwnerID, []int64{target.ID})
		if err != nil {
			return err
		}
		if target.IsFolder && len(children) > 0 && !req.Recursive {
			return errFolderNotEmpty()
		}

		// a file is a leaf, rows wrongly parented under it are left alone
		levels := [][]int64{{target.ID}}
		if target.FilePath != nil {
			blobs = []string{*target.FilePath}
		}
		if target.IsFolder {
			levels, blobs, err = s.collect(ctx, tx, req.OwnerID, *target, children)
			if err != nil {
				return err
			}
		}

		// deepest level first so no row outlives its parent
		for i := len(levels) - 1; i >= 0; i-- {
			n, err := tx.DeleteByIDs(ctx, req.OwnerID, levels[i])
			if err != nil {
				return err
			}
			result.Deleted += n
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap("delete", err)
	}

	s.metrics.nodesDeleted(ctx, result.Deleted, result.Recursive)
	s.unlink(ctx, blobs)

	s.logger.Info("archive node deleted",
		zap.Int64("id", req.ID),
		zap.Int64("owner_id", req.OwnerID),
		zap.Bool("recursive", result.Recursive),
		zap.Int64("rows", result.Deleted),
		zap.Int("blobs", len(blobs)))
	return &result, nil
}

// collect walks the subtree below root breadth first with an explicit
// worklist. It returns node ids grouped by depth, root first, and the blob
// paths of every file found. Nodes already seen are skipped so a corrupt
// parent chain cannot loop.
func (s *Service) collect(ctx context.Context, tx Store, ownerID int64, root db_model.ArchiveNode, children []db_model.ArchiveNode) ([][]int64, []string, error) {
	visited := map[int64]struct{}{root.ID: {}}
	levels := [][]int64{{root.ID}}
	var blobs []string
	if root.FilePath != nil {
		blobs = append(blobs, *root.FilePath)
	}

	frontier := children
	for depth := 1; len(frontier) > 0; depth++ {
		if depth > s.maxDepth {
			return nil, nil, apperror.Internal(fmt.Errorf("subtree of node %d is deeper than %d levels", root.ID, s.maxDepth))
		}

		var ids []int64
		for _, n := range frontier {
			if _, seen := visited[n.ID]; seen {
				s.logger.Warn("archive cycle detected", zap.Int64("node_id", n.ID), zap.Int64("root_id", root.ID))
				continue
			}
			visited[n.ID] = struct{}{}
			ids = append(ids, n.ID)
			if !n.IsFolder && n.FilePath != nil {
				blobs = append(blobs, *n.FilePath)
			}
		}
		if len(ids) == 0 {
			break
		}
		levels = append(levels, ids)

		var err error
		frontier, err = tx.Children(ctx, ownerID, ids)
		if err != nil {
			return nil, nil, err
		}
	}

	return levels, blobs, nil
}

// unlink removes blobs whose rows are gone. Failures leave an orphaned blob,
// they are logged and counted but never fail the delete.
func (s *Service) unlink(ctx context.Context, paths []string) {
	if s.blobs == nil {
		return
	}
	for _, p := range paths {
		if err := s.blobs.Remove(p); err != nil {
			s.metrics.blobUnlinkFailed(ctx)
			s.logger.Warn("could not remove blob from disk", zap.String("file_path", p), zap.Error(err))
		}
	}
}

// wrap keeps client facing errors and hides everything else
func (s *Service) wrap(op string, err error) error {
	if apperror.IsDomain(err) {
		return err
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(fmt.Errorf("archive %s: %w", op, err))
	}
	s.logger.Error("archive operation failed", zap.String("op", op), zap.Error(err))
	return appErr
}
