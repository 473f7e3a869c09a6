package archive

import (
	"time"

	"github.com/shaibs3/careportal/internal/storage"
)

// DateLayout is the format of Entry.DateModified
const DateLayout = "2006-01-02 15:04:05"

// PublicPrefix is the URL path archive blobs are served under
const PublicPrefix = "/uploads/archives/"

// CreateRequest creates a folder, or a file when Blob is set and IsFolder is false
type CreateRequest struct {
	OwnerID  int64
	ParentID *int64
	Name     string
	IsFolder bool
	Blob     *storage.Blob
}

type ListFilter struct {
	OwnerID  int64
	ParentID *int64
	Search   string
}

// Entry is the listing projection of a node
type Entry struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	IsFolder     bool    `json:"is_folder"`
	FilePath     *string `json:"file_path"`
	FileSize     *int64  `json:"file_size"`
	FileType     *string `json:"file_type"`
	DateModified string  `json:"dateModified"`
	ChildCount   int64   `json:"childCount"`
}

type DeleteRequest struct {
	OwnerID   int64
	ID        int64
	Recursive bool
}

// DeleteResult reports how many rows went away
type DeleteResult struct {
	Deleted   int64
	Folder    bool
	Recursive bool
}

// entryRow is what the list query scans into
type entryRow struct {
	ID           int64
	Name         string
	IsFolder     bool
	FilePath     *string
	FileSize     *int64
	FileType     *string
	DateModified time.Time
	ChildCount   int64
}

func (r entryRow) entry() Entry {
	return Entry{
		ID:           r.ID,
		Name:         r.Name,
		IsFolder:     r.IsFolder,
		FilePath:     r.FilePath,
		FileSize:     r.FileSize,
		FileType:     r.FileType,
		DateModified: r.DateModified.UTC().Format(DateLayout),
		ChildCount:   r.ChildCount,
	}
}
