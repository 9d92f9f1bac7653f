package service

import (
	"time"

	"marketsync/internal/domain"
	"marketsync/internal/models"
)

type PresenceStore interface {
	Upsert(p *models.UserPresence) (created bool, err error)
	List() ([]models.UserPresence, error)
}

type PresenceService struct {
	repo PresenceStore
	hub  Publisher
}

func NewPresenceService(repo PresenceStore, hub Publisher) *PresenceService {
	return &PresenceService{repo: repo, hub: hub}
}

// Update writes the caller's presence row and pushes it on the global presence feed.
// A zero lastSeen is stamped with the server clock.
func (s *PresenceService) Update(userID, status string, available bool, lastSeen time.Time) (*models.UserPresence, error) {
	if lastSeen.IsZero() {
		lastSeen = now()
	}
	p := &models.UserPresence{
		UserID:      userID,
		Status:      status,
		LastSeen:    lastSeen.UTC().Truncate(time.Millisecond),
		IsAvailable: available,
	}
	created, err := s.repo.Upsert(p)
	if err != nil {
		return nil, err
	}
	kind := domain.EventUpdate
	if created {
		kind = domain.EventInsert
	}
	s.hub.Publish(domain.TablePresence, domain.PresenceScopeGlobal, kind, *p)
	return p, nil
}

func (s *PresenceService) List() ([]models.UserPresence, error) {
	list, err := s.repo.List()
	if list == nil {
		list = []models.UserPresence{}
	}
	return list, err
}
