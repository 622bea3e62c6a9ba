package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/upwatch/dispatch/internal/domain"
	"github.com/upwatch/dispatch/internal/probe"
	"github.com/upwatch/dispatch/internal/queue"
	"github.com/upwatch/dispatch/internal/repo"
)

// Worker drains one batch for a (region, consumer) pair: claim, probe
// concurrently, persist a tick per still-existing website, then acknowledge
// the whole batch in one call.
type Worker struct {
	Log      *zap.Logger
	Websites repo.WebsiteStore
	Ticks    repo.TickStore
	Regions  repo.RegionStore
	Queue    queue.Queue
	Checker  probe.Checker

	BatchSize   int
	Concurrency int // probe fan-out cap within one batch
}

type Report struct {
	Message    string `json:"message"`
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	RegionName string `json:"regionName"`
	WorkerID   string `json:"workerId"`
}

// RunOnce is a single-pass batch operation. Processed counts entries that
// produced a tick; entries whose website was deleted mid-flight are skipped
// but still acknowledged with the rest of the batch.
func (w *Worker) RunOnce(ctx context.Context, regionID, workerID string) (*Report, error) {
	region, err := w.Regions.RegionByID(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", regionID, err)
	}

	batchSize := w.BatchSize
	if batchSize < 1 {
		batchSize = 10
	}
	batch, err := w.Queue.ReadGroup(ctx, regionID, workerID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("read region %s: %w", regionID, err)
	}
	if len(batch) == 0 {
		return &Report{
			Message:    fmt.Sprintf("No websites in queue for region '%s' to process", region.Name),
			RegionName: region.Name,
			WorkerID:   workerID,
		}, nil
	}

	concurrency := w.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	processed := 0
	var itemErrs error

	for _, d := range batch {
		d := d
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			ticked, err := w.processOne(ctx, regionID, d)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// logged and skipped; the entry is still acknowledged below
				itemErrs = multierr.Append(itemErrs, fmt.Errorf("entry %s: %w", d.EntryID, err))
				return
			}
			if ticked {
				processed++
			}
		}()
	}
	wg.Wait()

	if itemErrs != nil {
		w.Log.Warn("worker_item_errors",
			zap.String("region_id", regionID),
			zap.String("worker_id", workerID),
			zap.Int("failed", len(multierr.Errors(itemErrs))),
			zap.Error(itemErrs),
		)
	}

	// Acknowledge every delivered entry regardless of per-item outcome. If
	// the ack itself fails, nothing was acknowledged and the batch will be
	// redelivered (at-least-once).
	ids := make([]string, len(batch))
	for i, d := range batch {
		ids[i] = d.EntryID
	}
	if err := w.Queue.AckBulk(ctx, regionID, ids); err != nil {
		return nil, fmt.Errorf("ack batch for region %s: %w", regionID, err)
	}

	w.Log.Info("worker_batch_done",
		zap.String("region_id", regionID),
		zap.String("region_name", region.Name),
		zap.String("worker_id", workerID),
		zap.Int("processed", processed),
		zap.Int("total", len(batch)),
	)

	return &Report{
		Message:    fmt.Sprintf("Successfully processed %d websites in region '%s' with worker '%s'", processed, region.Name, workerID),
		Processed:  processed,
		Total:      len(batch),
		RegionName: region.Name,
		WorkerID:   workerID,
	}, nil
}

// processOne reports whether a tick was written. A deleted website is a
// normal skip (false, nil); a probe outcome is always recordable data, so
// the only error paths are catalog failures.
func (w *Worker) processOne(ctx context.Context, regionID string, d queue.Delivered) (bool, error) {
	if _, err := w.Websites.WebsiteByID(ctx, d.Message.WebsiteID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			w.Log.Info("worker_website_gone",
				zap.String("website_id", d.Message.WebsiteID),
				zap.String("entry_id", d.EntryID),
			)
			return false, nil
		}
		return false, fmt.Errorf("lookup website %s: %w", d.Message.WebsiteID, err)
	}

	out := w.Checker.Check(ctx, d.Message.URL)
	tick := &domain.Tick{
		WebsiteID:      d.Message.WebsiteID,
		RegionID:       regionID,
		Status:         out.Status,
		ResponseTimeMS: out.ResponseTimeMS,
		CreatedAt:      time.Now().UTC(),
	}
	if err := w.Ticks.AppendTick(ctx, tick); err != nil {
		return false, fmt.Errorf("append tick for %s: %w", d.Message.WebsiteID, err)
	}

	w.Log.Debug("worker_probed",
		zap.String("website_id", d.Message.WebsiteID),
		zap.String("url", d.Message.URL),
		zap.String("status", string(out.Status)),
		zap.Int("response_time_ms", out.ResponseTimeMS),
		zap.String("label", out.Label),
	)
	return true, nil
}
