// Package dispatch contains the producer (Pusher) and consumer (Worker)
// sides of the probing pipeline.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/queue"
	"github.com/upwatch/dispatch/internal/repo"
)

// Pusher seeds never-probed websites into a region's queue. It is a
// catch-up-once producer: websites with any probe history are left to the
// operational re-probe schedule, not re-enqueued here.
type Pusher struct {
	Log      *zap.Logger
	Websites repo.WebsiteStore
	Regions  repo.RegionStore
	Queue    queue.Queue
}

type PushReport struct {
	Message   string `json:"message"`
	Count     int    `json:"count"`
	Total     int    `json:"total"`
	Unchecked int    `json:"unchecked"`
}

// Run enqueues the caller's zero-tick websites into regionID's log.
// Returns repo.ErrNotFound when the region is unknown.
func (p *Pusher) Run(ctx context.Context, callerID, regionID string) (*PushReport, error) {
	region, err := p.Regions.RegionByID(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", regionID, err)
	}

	unchecked, err := p.Websites.UncheckedByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list unchecked websites: %w", err)
	}
	total, err := p.Websites.CountByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("count websites: %w", err)
	}

	if len(unchecked) == 0 {
		if total == 0 {
			return &PushReport{Message: "No websites found. Add some websites first!"}, nil
		}
		return &PushReport{
			Message: fmt.Sprintf("All %d websites have already been checked. Add new websites to monitor more!", total),
			Total:   total,
		}, nil
	}

	msgs := make([]queue.Message, 0, len(unchecked))
	for _, w := range unchecked {
		msgs = append(msgs, queue.Message{URL: w.URL, WebsiteID: w.ID})
	}
	if err := p.Queue.AppendBulk(ctx, regionID, msgs); err != nil {
		return nil, fmt.Errorf("append to region %s: %w", regionID, err)
	}

	p.Log.Info("pusher_enqueued",
		zap.String("caller_id", callerID),
		zap.String("region_id", regionID),
		zap.String("region_name", region.Name),
		zap.Int("count", len(msgs)),
		zap.Int("total", total),
	)

	return &PushReport{
		Message:   fmt.Sprintf("Successfully pushed %d new websites to monitoring queue (%d already monitored)", len(msgs), total-len(msgs)),
		Count:     len(msgs),
		Total:     total,
		Unchecked: len(msgs),
	}, nil
}
