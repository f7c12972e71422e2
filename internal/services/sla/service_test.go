package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/cache"
	"github.com/campusdesk-io/campusdesk/internal/config"
	"github.com/campusdesk-io/campusdesk/internal/models"
)

func fixedCategory(c *models.Category, err error) CategoryGetter {
	return func(ctx context.Context, id int64) (*models.Category, error) {
		return c, err
	}
}

func TestComputeDueDatesDefaultAckWindow(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})
	svc := NewService(clock, fixedCategory(&models.Category{ID: 1, SLAHours: 48}, nil), nil, 0, 4)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ack, res, err := svc.ComputeDueDates(context.Background(), 1, created)
	if err != nil {
		t.Fatalf("ComputeDueDates: %v", err)
	}

	if want := created.Add(4 * time.Hour); !ack.Equal(want) {
		t.Fatalf("ack due = %v, want %v", ack, want)
	}
	if want := created.Add(48 * time.Hour); !res.Equal(want) {
		t.Fatalf("resolution due = %v, want %v", res, want)
	}
}

func TestComputeDueDatesCategoryAckHours(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})
	svc := NewService(clock, fixedCategory(&models.Category{ID: 1, SLAHours: 24, AckHours: 8}, nil), nil, 0, 4)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ack, _, err := svc.ComputeDueDates(context.Background(), 1, created)
	if err != nil {
		t.Fatalf("ComputeDueDates: %v", err)
	}
	if want := created.Add(8 * time.Hour); !ack.Equal(want) {
		t.Fatalf("ack due = %v, want %v", ack, want)
	}
}

func TestComputeDueDatesAckCappedAtSLA(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})
	svc := NewService(clock, fixedCategory(&models.Category{ID: 1, SLAHours: 2, AckHours: 8}, nil), nil, 0, 4)

	created := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	ack, res, err := svc.ComputeDueDates(context.Background(), 1, created)
	if err != nil {
		t.Fatalf("ComputeDueDates: %v", err)
	}
	if !ack.Equal(res) {
		t.Fatalf("ack window should be capped at the resolution window: ack=%v res=%v", ack, res)
	}
}

func TestComputeDueDatesPropagatesCategoryError(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})
	sentinel := errors.New("boom")
	svc := NewService(clock, fixedCategory(nil, sentinel), nil, 0, 4)

	_, _, err := svc.ComputeDueDates(context.Background(), 1, time.Now())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped category error, got %v", err)
	}
}

func TestCategoryCacheHitAndInvalidate(t *testing.T) {
	clock := mustClock(t, config.SLAConfig{TwentyFourSeven: true})

	calls := 0
	getter := func(ctx context.Context, id int64) (*models.Category, error) {
		calls++
		return &models.Category{ID: id, SLAHours: 24}, nil
	}

	cc := cache.NewLocalCache(cache.LocalConfig{MaxEntries: 10, DefaultTTL: time.Minute})
	defer cc.Stop()
	svc := NewService(clock, getter, cc, time.Minute, 4)

	ctx := context.Background()
	if _, err := svc.Category(ctx, 7); err != nil {
		t.Fatalf("Category: %v", err)
	}
	if _, err := svc.Category(ctx, 7); err != nil {
		t.Fatalf("Category: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one backing load, got %d", calls)
	}

	svc.InvalidateCategory(7)
	if _, err := svc.Category(ctx, 7); err != nil {
		t.Fatalf("Category: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d calls", calls)
	}
}
