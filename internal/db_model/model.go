package db_model

import "time"

// ArchiveNode is a file or folder in a user's archive. A nil ParentID places
// the node at the archive root. Only files carry the blob columns.
type ArchiveNode struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID      int64     `gorm:"not null;index:idx_archive_owner_parent,priority:1" json:"owner_id"`
	ParentID     *int64    `gorm:"index:idx_archive_owner_parent,priority:2" json:"parent_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	IsFolder     bool      `gorm:"not null" json:"is_folder"`
	FilePath     *string   `gorm:"size:1024" json:"file_path"`
	FileSize     *int64    `json:"file_size"`
	FileType     *string   `gorm:"size:32" json:"file_type"`
	DateModified time.Time `gorm:"not null" json:"date_modified"`
}

func (ArchiveNode) TableName() string { return "archive_nodes" }

// Account is a registered portal user
type Account struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string    `gorm:"size:100;not null" json:"firstName"`
	LastName     string    `gorm:"size:100;not null" json:"lastName"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	AltEmail     *string   `gorm:"size:255" json:"altEmail"`
	DOB          string    `gorm:"column:dob;size:10;not null" json:"dob"`
	Gender       string    `gorm:"size:32;not null" json:"gender"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	AltPhone     *string   `gorm:"size:32" json:"altPhone"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (Account) TableName() string { return "accounts" }

// PasswordResetToken holds at most one live token per email
type PasswordResetToken struct {
	Email     string    `gorm:"primaryKey;size:255"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (PasswordResetToken) TableName() string { return "password_reset_tokens" }

// CalendarEvent is an entry in a user's care calendar
type CalendarEvent struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     int64     `gorm:"not null;index" json:"-"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	EventDate   string    `gorm:"size:10;not null" json:"event_date"`
	EventTime   string    `gorm:"size:8;not null" json:"event_time"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

func (CalendarEvent) TableName() string { return "calendar_events" }
