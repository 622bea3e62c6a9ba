// Package memory is an in-process queue.Queue used for tests and single-node
// deployments without Redis. The log is retained independently of the group,
// so destroying and recreating a group replays retained entries.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/upwatch/dispatch/internal/queue"
)

var _ queue.Queue = (*Queue)(nil)

type entry struct {
	id  string
	msg queue.Message
}

type pending struct {
	idx         int
	deliveredAt time.Time
}

type group struct {
	cursor  int // index of the next never-delivered log entry
	pending map[string]*pending
}

type stream struct {
	entries []entry
	group   *group
}

type Queue struct {
	mu           sync.Mutex
	streams      map[string]*stream
	seq          uint64
	reclaimAfter time.Duration
	now          func() time.Time
}

// New returns an empty queue. reclaimAfter > 0 enables redelivery of pending
// entries idle longer than that window; 0 keeps the baseline
// pending-until-acked behavior.
func New(reclaimAfter time.Duration) *Queue {
	return &Queue{
		streams:      make(map[string]*stream),
		reclaimAfter: reclaimAfter,
		now:          time.Now,
	}
}

func (q *Queue) streamLocked(regionID string) *stream {
	s := q.streams[regionID]
	if s == nil {
		s = &stream{}
		q.streams[regionID] = s
	}
	return s
}

func (q *Queue) CreateGroup(ctx context.Context, regionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.streamLocked(regionID)
	if s.group != nil {
		return queue.ErrGroupExists
	}
	s.group = &group{pending: make(map[string]*pending)}
	return nil
}

func (q *Queue) DestroyGroup(ctx context.Context, regionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s := q.streams[regionID]; s != nil {
		s.group = nil
	}
	return nil
}

func (q *Queue) AppendBulk(ctx context.Context, regionID string, msgs []queue.Message) error {
	for _, m := range msgs {
		if m.URL == "" || m.WebsiteID == "" {
			return fmt.Errorf("malformed queue message %+v: url and website id are required", m)
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.streamLocked(regionID)
	ms := q.now().UnixMilli()
	for _, m := range msgs {
		q.seq++
		s.entries = append(s.entries, entry{
			id:  fmt.Sprintf("%d-%d", ms, q.seq),
			msg: m,
		})
	}
	return nil
}

func (q *Queue) ReadGroup(ctx context.Context, regionID, consumerID string, maxCount int) ([]queue.Delivered, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.streams[regionID]
	if s == nil || s.group == nil {
		return nil, queue.ErrNoGroup
	}
	g := s.group
	now := q.now()

	out := make([]queue.Delivered, 0, maxCount)

	// Stale pending entries first, in log order.
	if q.reclaimAfter > 0 {
		var stale []string
		for id, p := range g.pending {
			if now.Sub(p.deliveredAt) >= q.reclaimAfter {
				stale = append(stale, id)
			}
		}
		sort.Slice(stale, func(i, j int) bool {
			return g.pending[stale[i]].idx < g.pending[stale[j]].idx
		})
		for _, id := range stale {
			if len(out) == maxCount {
				break
			}
			p := g.pending[id]
			p.deliveredAt = now
			out = append(out, queue.Delivered{EntryID: id, Message: s.entries[p.idx].msg})
		}
	}

	// Then never-delivered entries from the cursor.
	for g.cursor < len(s.entries) && len(out) < maxCount {
		e := s.entries[g.cursor]
		g.pending[e.id] = &pending{idx: g.cursor, deliveredAt: now}
		out = append(out, queue.Delivered{EntryID: e.id, Message: e.msg})
		g.cursor++
	}
	return out, nil
}

func (q *Queue) AckBulk(ctx context.Context, regionID string, entryIDs []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.streams[regionID]
	if s == nil || s.group == nil {
		return nil
	}
	for _, id := range entryIDs {
		delete(s.group.pending, id)
	}
	return nil
}
