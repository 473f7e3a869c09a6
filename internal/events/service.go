package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shaibs3/careportal/internal/apperror"
	"github.com/shaibs3/careportal/internal/database"
	"github.com/shaibs3/careportal/internal/db_model"
	"github.com/shaibs3/careportal/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Request is the body of create and update calls
type Request struct {
	Title       string  `json:"title" label:"Title" validate:"required,max=255"`
	Date        string  `json:"date" label:"Date" validate:"required,datetime=2006-01-02"`
	Time        string  `json:"time" label:"Time" validate:"required,clock"`
	Description *string `json:"description"`
}

// Event is the client view of a calendar entry
type Event struct {
	ID          int64   `json:"eventId"`
	Title       string  `json:"title"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Description *string `json:"description"`
}

func eventOf(e *db_model.CalendarEvent) Event {
	return Event{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.EventDate,
		Time:        e.EventTime,
		Description: e.Description,
	}
}

// Service manages calendar events. Every call is scoped to one owner.
type Service struct {
	db       *gorm.DB
	guard    *database.Guard
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(db *gorm.DB, guard *database.Guard, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		guard:    guard,
		validate: validation.New(),
		logger:   logger.Named("events"),
	}
}

func (s *Service) Create(ctx context.Context, ownerID int64, req Request) (int64, error) {
	if err := s.check(&req); err != nil {
		return 0, err
	}

	row := db_model.CalendarEvent{
		OwnerID:     ownerID,
		Title:       req.Title,
		EventDate:   req.Date,
		EventTime:   req.Time,
		Description: req.Description,
	}
	err := s.guard.Write(ctx, "events.create", func() error {
		return s.db.WithContext(ctx).Create(&row).Error
	})
	if err != nil {
		return 0, s.internal("create", err)
	}
	return row.ID, nil
}

// List returns the owner's events in calendar order
func (s *Service) List(ctx context.Context, ownerID int64) ([]Event, error) {
	var rows []db_model.CalendarEvent
	err := s.guard.Read(ctx, "events.list", func() error {
		return s.db.WithContext(ctx).
			Where("owner_id = ?", ownerID).
			Order("event_date, event_time, id").
			Find(&rows).Error
	})
	if err != nil {
		return nil, s.internal("list", err)
	}

	out := make([]Event, 0, len(rows))
	for i := range rows {
		out = append(out, eventOf(&rows[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Event, error) {
	row, err := s.get(ctx, ownerID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("Event not found")
	}
	if err != nil {
		return nil, s.internal("get", err)
	}
	e := eventOf(row)
	return &e, nil
}

// Update replaces every field of an event and returns the stored result
func (s *Service) Update(ctx context.Context, ownerID, id int64, req Request) (*Event, error) {
	if err := s.check(&req); err != nil {
		return nil, err
	}

	var affected int64
	err := s.guard.Write(ctx, "events.update", func() error {
		res := s.db.WithContext(ctx).
			Model(&db_model.CalendarEvent{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]interface{}{
				"title":       req.Title,
				"event_date":  req.Date,
				"event_time":  req.Time,
				"description": req.Description,
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return nil, s.internal("update", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("Event not found or unauthorized")
	}
	return s.Get(ctx, ownerID, id)
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	var affected int64
	err := s.guard.Write(ctx, "events.delete", func() error {
		res := s.db.WithContext(ctx).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Delete(&db_model.CalendarEvent{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return s.internal("delete", err)
	}
	if affected == 0 {
		return apperror.NotFound("Event not found or unauthorized")
	}
	return nil
}

func (s *Service) get(ctx context.Context, ownerID, id int64) (*db_model.CalendarEvent, error) {
	var row db_model.CalendarEvent
	err := s.guard.Read(ctx, "events.get", func() error {
		return s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// check validates req and normalizes its time to HH:MM:SS
func (s *Service) check(req *Request) error {
	if err := s.validate.Struct(req); err != nil {
		return apperror.Validation(validation.Message(err))
	}
	t, _ := validation.ParseClock(req.Time)
	req.Time = t.Format(validation.ClockLayouts[0])
	return nil
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("events operation failed", zap.String("op", op), zap.Error(err))
	return apperror.Internal(fmt.Errorf("events %s: %w", op, err))
}
