package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upwatch/dispatch/internal/domain"
	"github.com/upwatch/dispatch/internal/repo"
)

var (
	_ repo.WebsiteStore = (*Store)(nil)
	_ repo.RegionStore  = (*Store)(nil)
	_ repo.TickStore    = (*Store)(nil)
)

type Store struct {
	mu       sync.RWMutex
	websites map[string]*domain.Website
	regions  map[string]*domain.Region
	ticks    []*domain.Tick
}

func New() *Store {
	return &Store{
		websites: make(map[string]*domain.Website),
		regions:  make(map[string]*domain.Region),
		ticks:    make([]*domain.Tick, 0, 128),
	}
}

// ---- WebsiteStore ----

func (m *Store) AddWebsite(ctx context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.websites {
		if other.OwnerID == w.OwnerID && other.URL == w.URL {
			return repo.ErrDuplicateWebsite
		}
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	m.websites[w.ID] = w
	return nil
}

func (m *Store) WebsiteByID(ctx context.Context, id string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.websites[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *Store) WebsitesByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownedLocked(ownerID, false), nil
}

func (m *Store) UncheckedByOwner(ctx context.Context, ownerID string) ([]*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownedLocked(ownerID, true), nil
}

func (m *Store) ownedLocked(ownerID string, uncheckedOnly bool) []*domain.Website {
	ticked := make(map[string]bool, len(m.ticks))
	for _, t := range m.ticks {
		ticked[t.WebsiteID] = true
	}
	out := make([]*domain.Website, 0, len(m.websites))
	for _, w := range m.websites {
		if w.OwnerID != ownerID {
			continue
		}
		if uncheckedOnly && ticked[w.ID] {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	// oldest first, stable across calls
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (m *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, w := range m.websites {
		if w.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *Store) DeleteWebsite(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.websites[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.websites, id)
	kept := m.ticks[:0]
	for _, t := range m.ticks {
		if t.WebsiteID != id {
			kept = append(kept, t)
		}
	}
	m.ticks = kept
	return nil
}

// ---- RegionStore ----

func (m *Store) AddRegion(ctx context.Context, r *domain.Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.regions {
		if other.Name == r.Name {
			return repo.ErrDuplicateRegion
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.regions[r.ID] = r
	return nil
}

func (m *Store) RegionByID(ctx context.Context, id string) (*domain.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.regions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Store) RegionByName(ctx context.Context, name string) (*domain.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.regions {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) Regions(ctx context.Context) ([]*domain.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Region, 0, len(m.regions))
	for _, r := range m.regions {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Store) DeleteRegion(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regions[id]; !ok {
		return repo.ErrNotFound
	}
	for _, t := range m.ticks {
		if t.RegionID == id {
			return repo.ErrRegionInUse
		}
	}
	delete(m.regions, id)
	return nil
}

// ---- TickStore ----

func (m *Store) AppendTick(ctx context.Context, t *domain.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	m.ticks = append(m.ticks, &cp)
	return nil
}

func (m *Store) LatestTick(ctx context.Context, websiteID string) (*domain.Tick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.Tick
	for _, t := range m.ticks {
		if t.WebsiteID != websiteID {
			continue
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	if latest == nil {
		return nil, repo.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
