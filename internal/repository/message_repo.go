package repository

import (
	"marketsync/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.ChatMessage) error {
	return r.db.Create(m).Error
}

func (r *MessageRepository) GetByClientRef(ref string) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.db.Where("client_ref = ?", ref).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByBookingID returns the newest limit messages of the thread, oldest first.
func (r *MessageRepository) ListByBookingID(bookingID string, limit int) ([]models.ChatMessage, error) {
	var list []models.ChatMessage
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// MarkThreadRead flips every unread message from senderID to receiverID in the booking
// and returns the rows that changed.
func (r *MessageRepository) MarkThreadRead(bookingID, senderID, receiverID string) ([]models.ChatMessage, error) {
	var changed []models.ChatMessage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("booking_id = ? AND sender_id = ? AND receiver_id = ? AND is_read = ?", bookingID, senderID, receiverID, false)
		if err := q.Find(&changed).Error; err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		// one stamp for the column and the pushed rows; clients order updates by it
		at := tx.NowFunc()
		ids := make([]string, len(changed))
		for i := range changed {
			ids[i] = changed[i].ID
			changed[i].IsRead = true
			changed[i].UpdatedAt = at
		}
		return tx.Model(&models.ChatMessage{}).Where("id IN ?", ids).
			Updates(map[string]interface{}{"is_read": true, "updated_at": at}).Error
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}
