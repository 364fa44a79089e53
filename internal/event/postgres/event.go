package postgres

import (
	"errors"

	"gorm.io/gorm"

	eventmodel "github.com/eventflow/event-management/internal/core/datamodel/event"
)

// EventRepository is read-only here; event CRUD lives in the management
// frontend, this backend only consults payment and certificate settings.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{
		db: db,
	}
}

func (r *EventRepository) GetByID(id string) (*eventmodel.Event, error) {
	var e eventmodel.Event
	err := r.db.Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) GetBySlug(slug string) (*eventmodel.Event, error) {
	var e eventmodel.Event
	err := r.db.Where("slug = ?", slug).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
