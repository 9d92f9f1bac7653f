package repository

import (
	"marketsync/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

// CreateBatch inserts rows in one statement, as a fan-out trigger does.
func (r *NotificationRepository) CreateBatch(list []models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.Create(&list).Error
}

// ListRecentByUserID returns the newest limit rows for the user, ascending by created_at.
func (r *NotificationRepository) ListRecentByUserID(userID string, limit int) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// SetRead flips the given rows owned by userID and returns the rows that changed.
func (r *NotificationRepository) SetRead(userID string, ids []string, read bool) ([]models.Notification, error) {
	var changed []models.Notification
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id IN ? AND is_read <> ?", userID, ids, read).Find(&changed).Error; err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		changedIDs := make([]string, len(changed))
		for i := range changed {
			changedIDs[i] = changed[i].ID
			changed[i].IsRead = read
		}
		return tx.Model(&models.Notification{}).Where("id IN ?", changedIDs).Update("is_read", read).Error
	})
	return changed, err
}

// MarkAllRead flips every unread row of the user and returns them.
func (r *NotificationRepository) MarkAllRead(userID string) ([]models.Notification, error) {
	var changed []models.Notification
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND is_read = ?", userID, false).Find(&changed).Error; err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		for i := range changed {
			changed[i].IsRead = true
		}
		return tx.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Update("is_read", true).Error
	})
	return changed, err
}
