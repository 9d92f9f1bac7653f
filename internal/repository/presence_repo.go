package repository

import (
	"marketsync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert writes the row and reports whether it was newly created.
func (r *PresenceRepository) Upsert(p *models.UserPresence) (bool, error) {
	var n int64
	if err := r.db.Model(&models.UserPresence{}).Where("user_id = ?", p.UserID).Count(&n).Error; err != nil {
		return false, err
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen", "is_available", "updated_at"}),
	}).Create(p).Error
	return n == 0, err
}

func (r *PresenceRepository) List() ([]models.UserPresence, error) {
	var list []models.UserPresence
	err := r.db.Order("user_id ASC").Find(&list).Error
	return list, err
}

func (r *PresenceRepository) GetByUserID(userID string) (*models.UserPresence, error) {
	var p models.UserPresence
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}
