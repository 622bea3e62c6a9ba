package repo

import (
	"context"
	"errors"

	"github.com/upwatch/dispatch/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateWebsite = errors.New("website already exists for this owner")
	ErrDuplicateRegion  = errors.New("region name already exists")
	// ErrRegionInUse blocks region deletion while any tick references it.
	ErrRegionInUse = errors.New("region has recorded ticks")
)

type WebsiteStore interface {
	AddWebsite(ctx context.Context, w *domain.Website) error
	WebsiteByID(ctx context.Context, id string) (*domain.Website, error)
	WebsitesByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error)
	// UncheckedByOwner returns the owner's websites with zero ticks,
	// oldest first.
	UncheckedByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	// DeleteWebsite cascades deletion of the website's ticks.
	DeleteWebsite(ctx context.Context, id string) error
}

type RegionStore interface {
	AddRegion(ctx context.Context, r *domain.Region) error
	RegionByID(ctx context.Context, id string) (*domain.Region, error)
	RegionByName(ctx context.Context, name string) (*domain.Region, error)
	Regions(ctx context.Context) ([]*domain.Region, error)
	DeleteRegion(ctx context.Context, id string) error
}

// TickStore appends immutable probe results. There is deliberately no update
// or single-delete: history only changes by website cascade.
type TickStore interface {
	AppendTick(ctx context.Context, t *domain.Tick) error
	LatestTick(ctx context.Context, websiteID string) (*domain.Tick, error)
}
