package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/cache"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

type stubProfileStore struct {
	profile *models.StaffProfile
	err     error
	calls   int
}

func (s *stubProfileStore) GetProfile(ctx context.Context, userID int64) (*models.StaffProfile, error) {
	s.calls++
	return s.profile, s.err
}

type stubTicketLister struct {
	tickets []*models.Ticket
}

func (s *stubTicketLister) ListCandidates(ctx context.Context) ([]*models.Ticket, error) {
	return s.tickets, nil
}

func TestResolveVisibleTicketsFilters(t *testing.T) {
	domain := int64(5)
	store := &stubProfileStore{profile: &models.StaffProfile{
		UserID:          10,
		PrimaryDomainID: &domain,
	}}
	lister := &stubTicketLister{tickets: []*models.Ticket{
		{ID: 1, DomainID: &domain},                    // unassigned in primary domain
		{ID: 2, DomainID: i64(6)},                     // other domain
		{ID: 3, DomainID: &domain, AssignedTo: i64(99)}, // assigned elsewhere
		{ID: 4, AssignedTo: i64(10)},                  // explicitly mine
	}}

	svc := NewService(store, lister, nil, 0, nil)

	visible, err := svc.ResolveVisibleTickets(context.Background(), 10)
	if err != nil {
		t.Fatalf("ResolveVisibleTickets: %v", err)
	}

	want := []int64{1, 4}
	if len(visible) != len(want) {
		t.Fatalf("visible = %v, want %v", visible, want)
	}
	for i := range want {
		if visible[i] != want[i] {
			t.Fatalf("visible = %v, want %v", visible, want)
		}
	}
}

func TestProfileCacheAvoidsRepeatLoads(t *testing.T) {
	store := &stubProfileStore{profile: &models.StaffProfile{UserID: 10}}
	profiles := cache.NewLocalCache(cache.LocalConfig{MaxEntries: 10, DefaultTTL: time.Minute})
	defer profiles.Stop()

	svc := NewService(store, &stubTicketLister{}, profiles, time.Minute, nil)

	ctx := context.Background()
	if _, err := svc.Profile(ctx, 10); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if _, err := svc.Profile(ctx, 10); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected one backing load, got %d", store.calls)
	}

	svc.InvalidateProfile(10)
	if _, err := svc.Profile(ctx, 10); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d", store.calls)
	}
}
