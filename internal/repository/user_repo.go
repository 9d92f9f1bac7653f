package repository

import (
	"marketsync/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var u models.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureExists creates a user row for id if none exists yet. Tokens are minted
// out of band, so the first authenticated request may precede any user row.
func (r *UserRepository) EnsureExists(id, displayName string) (*models.User, error) {
	var u models.User
	if err := r.db.Where(models.User{ID: id}).Attrs(models.User{DisplayName: displayName}).FirstOrCreate(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateFCMToken(id, token string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token).Error
}
