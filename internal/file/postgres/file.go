package postgres

import (
	"errors"

	"gorm.io/gorm"

	filemodel "github.com/eventflow/event-management/internal/core/datamodel/file"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{
		db: db,
	}
}

func (r *FileRepository) Create(f *filemodel.File) error {
	return r.db.Create(f).Error
}

func (r *FileRepository) GetByID(id string) (*filemodel.File, error) {
	var f filemodel.File
	err := r.db.Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&filemodel.File{}).Error
}
