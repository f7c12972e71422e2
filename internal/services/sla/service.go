package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/cache"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

// CategoryGetter loads a category by id; the repository provides it.
type CategoryGetter func(ctx context.Context, id int64) (*models.Category, error)

// Service computes ticket deadlines from category SLA policy.
type Service struct {
	clock           *Clock
	getCategory     CategoryGetter
	categories      *cache.LocalCache
	categoryTTL     time.Duration
	defaultAckHours int
}

// NewService wires the deadline calculator. categories may be nil to bypass
// caching (tests).
func NewService(clock *Clock, getCategory CategoryGetter, categories *cache.LocalCache, categoryTTL time.Duration, defaultAckHours int) *Service {
	if defaultAckHours <= 0 {
		defaultAckHours = 4
	}
	return &Service{
		clock:           clock,
		getCategory:     getCategory,
		categories:      categories,
		categoryTTL:     categoryTTL,
		defaultAckHours: defaultAckHours,
	}
}

// Clock exposes the underlying business calendar for other services.
func (s *Service) Clock() *Clock {
	return s.clock
}

// Category loads a category through the read-through cache.
func (s *Service) Category(ctx context.Context, id int64) (*models.Category, error) {
	key := fmt.Sprintf("category:%d", id)
	if s.categories != nil {
		if v, ok := s.categories.Get(key); ok {
			return v.(*models.Category), nil
		}
	}

	category, err := s.getCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.categories != nil {
		s.categories.Set(key, category, s.categoryTTL)
	}
	return category, nil
}

// InvalidateCategory drops a category from the cache after an edit.
func (s *Service) InvalidateCategory(id int64) {
	if s.categories != nil {
		s.categories.Delete(fmt.Sprintf("category:%d", id))
	}
}

// ComputeDueDates returns the acknowledgement and resolution deadlines for a
// ticket created at createdAt in the given category. Called once at ticket
// creation; the results are stamped on the row and never recomputed.
func (s *Service) ComputeDueDates(ctx context.Context, categoryID int64, createdAt time.Time) (ackDueAt, resolutionDueAt time.Time, err error) {
	category, err := s.Category(ctx, categoryID)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("load category %d: %w", categoryID, err)
	}

	ackHours := category.AckHours
	if ackHours <= 0 {
		ackHours = s.defaultAckHours
	}
	// The acknowledgement window never exceeds the resolution window.
	if category.SLAHours > 0 && ackHours > category.SLAHours {
		ackHours = category.SLAHours
	}

	ackDueAt = s.clock.ComputeDueAt(createdAt, ackHours)
	resolutionDueAt = s.clock.ComputeDueAt(createdAt, category.SLAHours)
	return ackDueAt, resolutionDueAt, nil
}
