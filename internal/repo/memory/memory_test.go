package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/upwatch/dispatch/internal/domain"
	"github.com/upwatch/dispatch/internal/repo"
)

func TestMemoryStore_AddWebsite_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	w := &domain.Website{URL: "example.com", OwnerID: "u1"}
	if err := s.AddWebsite(ctx, w); err != nil {
		t.Fatalf("AddWebsite: %v", err)
	}
	if w.ID == "" {
		t.Fatalf("expected website ID to be set")
	}

	// same owner + url is rejected
	if err := s.AddWebsite(ctx, &domain.Website{URL: "example.com", OwnerID: "u1"}); !errors.Is(err, repo.ErrDuplicateWebsite) {
		t.Fatalf("want ErrDuplicateWebsite, got %v", err)
	}
	// same url for another owner is fine
	if err := s.AddWebsite(ctx, &domain.Website{URL: "example.com", OwnerID: "u2"}); err != nil {
		t.Fatalf("other owner should be allowed: %v", err)
	}
}

func TestMemoryStore_UncheckedByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()

	w1 := &domain.Website{URL: "a.com", OwnerID: "u1", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	w2 := &domain.Website{URL: "b.com", OwnerID: "u1", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	w3 := &domain.Website{URL: "c.com", OwnerID: "u2"}
	for _, w := range []*domain.Website{w1, w2, w3} {
		if err := s.AddWebsite(ctx, w); err != nil {
			t.Fatalf("AddWebsite: %v", err)
		}
	}
	region := &domain.Region{Name: "eu-west"}
	if err := s.AddRegion(ctx, region); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := s.AppendTick(ctx, &domain.Tick{WebsiteID: w1.ID, RegionID: region.ID, Status: domain.StatusUp}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}

	unchecked, err := s.UncheckedByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("UncheckedByOwner: %v", err)
	}
	if len(unchecked) != 1 || unchecked[0].ID != w2.ID {
		t.Fatalf("want only w2 unchecked, got %+v", unchecked)
	}

	n, err := s.CountByOwner(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("want count 2, got %d (%v)", n, err)
	}
}

func TestMemoryStore_DeleteWebsite_CascadesTicks(t *testing.T) {
	ctx := context.Background()
	s := New()

	w := &domain.Website{URL: "a.com", OwnerID: "u1"}
	if err := s.AddWebsite(ctx, w); err != nil {
		t.Fatalf("AddWebsite: %v", err)
	}
	region := &domain.Region{Name: "eu-west"}
	if err := s.AddRegion(ctx, region); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := s.AppendTick(ctx, &domain.Tick{WebsiteID: w.ID, RegionID: region.ID, Status: domain.StatusDown}); err != nil {
		t.Fatalf("AppendTick: %v", err)
	}

	// region cannot go while its tick exists
	if err := s.DeleteRegion(ctx, region.ID); !errors.Is(err, repo.ErrRegionInUse) {
		t.Fatalf("want ErrRegionInUse, got %v", err)
	}

	if err := s.DeleteWebsite(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWebsite: %v", err)
	}
	if _, err := s.LatestTick(ctx, w.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("ticks should be gone with the website, got %v", err)
	}

	// cascade freed the region
	if err := s.DeleteRegion(ctx, region.ID); err != nil {
		t.Fatalf("DeleteRegion after cascade: %v", err)
	}
}

func TestMemoryStore_LatestTick_PicksNewest(t *testing.T) {
	ctx := context.Background()
	s := New()

	w := &domain.Website{URL: "a.com", OwnerID: "u1"}
	if err := s.AddWebsite(ctx, w); err != nil {
		t.Fatalf("AddWebsite: %v", err)
	}
	old := &domain.Tick{WebsiteID: w.ID, RegionID: "r1", Status: domain.StatusDown, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := &domain.Tick{WebsiteID: w.ID, RegionID: "r1", Status: domain.StatusUp, CreatedAt: time.Now().UTC()}
	for _, tick := range []*domain.Tick{old, newer} {
		if err := s.AppendTick(ctx, tick); err != nil {
			t.Fatalf("AppendTick: %v", err)
		}
	}

	got, err := s.LatestTick(ctx, w.ID)
	if err != nil {
		t.Fatalf("LatestTick: %v", err)
	}
	if got.Status != domain.StatusUp {
		t.Fatalf("want newest tick (Up), got %+v", got)
	}
}

func TestMemoryStore_DuplicateRegionName(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.AddRegion(ctx, &domain.Region{Name: "us-east"}); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := s.AddRegion(ctx, &domain.Region{Name: "us-east"}); !errors.Is(err, repo.ErrDuplicateRegion) {
		t.Fatalf("want ErrDuplicateRegion, got %v", err)
	}
	if _, err := s.RegionByName(ctx, "us-east"); err != nil {
		t.Fatalf("RegionByName: %v", err)
	}
}
