package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"marketsync/internal/domain"
	"marketsync/internal/models"

	"gorm.io/gorm"
)

type BookingStore interface {
	Create(b *models.Booking) error
	GetByID(id string) (*models.Booking, error)
	UpdateStatus(id, status string) error
}

// UserDirectory resolves users, creating a placeholder row for ids seen first as a counterparty.
type UserDirectory interface {
	UserLookup
	EnsureExists(id, displayName string) (*models.User, error)
}

type BookingService struct {
	repo     BookingStore
	userRepo UserDirectory
	notif    *NotificationService
}

func NewBookingService(repo BookingStore, userRepo UserDirectory, notif *NotificationService) *BookingService {
	return &BookingService{repo: repo, userRepo: userRepo, notif: notif}
}

func (s *BookingService) Create(clientID, providerID string) (*models.Booking, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" || providerID == clientID {
		return nil, fmt.Errorf("%w: provider_id", ErrInvalidInput)
	}
	if _, err := s.userRepo.EnsureExists(providerID, ""); err != nil {
		return nil, err
	}
	b := &models.Booking{ClientID: clientID, ProviderID: providerID}
	if err := s.repo.Create(b); err != nil {
		return nil, err
	}
	if err := s.notif.NotifyBookingRequested(providerID, displayName(s.userRepo, clientID), b.ID); err != nil {
		log.Printf("[booking] notify provider %s: %v", providerID, err)
	}
	return b, nil
}

// Participant loads the booking and checks userID is one of its two sides.
func (s *BookingService) Participant(bookingID, userID string) (*models.Booking, error) {
	b, err := s.repo.GetByID(bookingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !b.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// Quote moves the booking to quoted and notifies the counterpart.
func (s *BookingService) Quote(bookingID, fromID, message string) error {
	b, err := s.Participant(bookingID, fromID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(b.ID, domain.BookingStatusQuoted); err != nil {
		return err
	}
	return s.notif.NotifyQuoteReceived(b.Counterpart(fromID), displayName(s.userRepo, fromID), b.ID, strings.TrimSpace(message))
}

func displayName(users UserLookup, id string) string {
	if users != nil {
		if u, err := users.GetByID(id); err == nil && u != nil {
			return u.Name()
		}
	}
	return "Someone"
}
