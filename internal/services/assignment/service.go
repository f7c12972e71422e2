package assignment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/cache"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// ProfileStore loads staff authority profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*models.StaffProfile, error)
}

// TicketLister returns the candidate tickets for visibility filtering.
type TicketLister interface {
	ListCandidates(ctx context.Context) ([]*models.Ticket, error)
}

// Service applies the resolver over the live ticket set. Staff profiles go
// through an explicit read-through cache owned by the service; writes to
// staff assignments must call InvalidateProfile.
type Service struct {
	staff      ProfileStore
	tickets    TicketLister
	profiles   *cache.LocalCache
	profileTTL time.Duration
	logger     *log.Logger
}

// NewService creates the assignment service. profiles may be nil to disable
// caching.
func NewService(staff ProfileStore, tickets TicketLister, profiles *cache.LocalCache, profileTTL time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		staff:      staff,
		tickets:    tickets,
		profiles:   profiles,
		profileTTL: profileTTL,
		logger:     logger,
	}
}

// Profile loads a staff profile through the cache.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.StaffProfile, error) {
	key := profileKey(userID)
	if s.profiles != nil {
		if v, ok := s.profiles.Get(key); ok {
			return v.(*models.StaffProfile), nil
		}
	}

	profile, err := s.staff.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.profiles != nil {
		s.profiles.Set(key, profile, s.profileTTL)
	}
	return profile, nil
}

// InvalidateProfile drops a cached profile after a role or assignment write.
func (s *Service) InvalidateProfile(userID int64) {
	if s.profiles != nil {
		s.profiles.Delete(profileKey(userID))
	}
}

// ResolveVisibleTickets returns the ids of every ticket the staff member
// should see, in id order.
func (s *Service) ResolveVisibleTickets(ctx context.Context, staffID int64) ([]int64, error) {
	profile, err := s.Profile(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff profile %d: %w", staffID, err)
	}

	candidates, err := s.tickets.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate tickets: %w", err)
	}

	visible := make([]int64, 0, len(candidates))
	for _, t := range candidates {
		if Resolve(t, profile) {
			visible = append(visible, t.ID)
		}
	}
	return visible, nil
}

// ListVisible is ResolveVisibleTickets with the full rows instead of ids.
func (s *Service) ListVisible(ctx context.Context, staffID int64) ([]*models.Ticket, error) {
	profile, err := s.Profile(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff profile %d: %w", staffID, err)
	}

	candidates, err := s.tickets.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate tickets: %w", err)
	}

	visible := make([]*models.Ticket, 0, len(candidates))
	for _, t := range candidates {
		if Resolve(t, profile) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

func profileKey(userID int64) string {
	return fmt.Sprintf("staff-profile:%d", userID)
}
