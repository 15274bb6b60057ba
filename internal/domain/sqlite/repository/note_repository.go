package repository

import (
	"errors"

	"legacynote/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

func (d *DefaultNoteRepository) FindByOwner(ownerID int64) ([]*entity.Note, error) {
	var notes []*entity.Note
	err := d.db.Where("owner_id = ?", ownerID).Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DefaultNoteRepository) FindByID(id int64) (*entity.Note, error) {
	var note entity.Note
	err := d.db.First(&note, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}

// FindUndeliveredBefore is the scheduler's prefilter. The precise due
// check (exact-time vs day granularity) happens in Go against
// Note.DueAt, so callers pass a cutoff with enough margin.
func (d *DefaultNoteRepository) FindUndeliveredBefore(cutoff int64) ([]*entity.Note, error) {
	var notes []*entity.Note
	err := d.db.
		Where("delivered_at IS NULL AND delivery_date <= ?", cutoff).
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// ClaimDelivery flips a note to delivered with a single conditional
// update. It returns true only for the caller that won the claim, so
// two scheduler instances can never both deliver the same note.
func (d *DefaultNoteRepository) ClaimDelivery(id int64, now int64) (bool, error) {
	res := d.db.Model(&entity.Note{}).
		Where("id = ? AND delivered_at IS NULL", id).
		Update("delivered_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (d *DefaultNoteRepository) Save(note *entity.Note) error {
	return d.db.Save(note).Error
}

func (d *DefaultNoteRepository) Delete(note *entity.Note) error {
	return d.db.Delete(note).Error
}
