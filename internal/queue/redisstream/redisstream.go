// Package redisstream backs queue.Queue with one Redis Stream per region and
// a single consumer group per stream (XGROUP / XADD / XREADGROUP / XACK).
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/upwatch/dispatch/internal/queue"
)

var _ queue.Queue = (*Queue)(nil)

const (
	groupName    = "workers"
	fieldURL     = "url"
	fieldWebsite = "website_id"
)

type Queue struct {
	rdb          *redis.Client
	reclaimAfter time.Duration
}

// New wraps an existing client. reclaimAfter > 0 enables XAUTOCLAIM of
// pending entries idle longer than the window; 0 disables reclaim.
func New(rdb *redis.Client, reclaimAfter time.Duration) *Queue {
	return &Queue{rdb: rdb, reclaimAfter: reclaimAfter}
}

func streamKey(regionID string) string {
	return "uptime:region:" + regionID
}

func (q *Queue) CreateGroup(ctx context.Context, regionID string) error {
	// start at "0" so entries appended before group creation still deliver
	err := q.rdb.XGroupCreateMkStream(ctx, streamKey(regionID), groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return queue.ErrGroupExists
	}
	if err != nil {
		return fmt.Errorf("xgroup create %s: %w", regionID, err)
	}
	return nil
}

func (q *Queue) DestroyGroup(ctx context.Context, regionID string) error {
	if err := q.rdb.XGroupDestroy(ctx, streamKey(regionID), groupName).Err(); err != nil {
		return fmt.Errorf("xgroup destroy %s: %w", regionID, err)
	}
	return nil
}

func (q *Queue) AppendBulk(ctx context.Context, regionID string, msgs []queue.Message) error {
	for _, m := range msgs {
		if m.URL == "" || m.WebsiteID == "" {
			return fmt.Errorf("malformed queue message %+v: url and website id are required", m)
		}
	}
	pipe := q.rdb.Pipeline()
	for _, m := range msgs {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: streamKey(regionID),
			Values: map[string]any{fieldURL: m.URL, fieldWebsite: m.WebsiteID},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xadd bulk %s: %w", regionID, err)
	}
	return nil
}

func (q *Queue) ReadGroup(ctx context.Context, regionID, consumerID string, maxCount int) ([]queue.Delivered, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	key := streamKey(regionID)
	out := make([]queue.Delivered, 0, maxCount)

	if q.reclaimAfter > 0 {
		claimed, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   key,
			Group:    groupName,
			Consumer: consumerID,
			MinIdle:  q.reclaimAfter,
			Start:    "0-0",
			Count:    int64(maxCount),
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if isNoGroup(err) {
				return nil, queue.ErrNoGroup
			}
			return nil, fmt.Errorf("xautoclaim %s: %w", regionID, err)
		}
		for _, m := range claimed {
			d, err := decode(m)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}

	if len(out) < maxCount {
		streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    groupName,
			Consumer: consumerID,
			Streams:  []string{key, ">"},
			Count:    int64(maxCount - len(out)),
			Block:    -1, // non-blocking read
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if isNoGroup(err) {
				return nil, queue.ErrNoGroup
			}
			return nil, fmt.Errorf("xreadgroup %s: %w", regionID, err)
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				d, err := decode(m)
				if err != nil {
					return nil, err
				}
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (q *Queue) AckBulk(ctx context.Context, regionID string, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if err := q.rdb.XAck(ctx, streamKey(regionID), groupName, entryIDs...).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", regionID, err)
	}
	return nil
}

func decode(m redis.XMessage) (queue.Delivered, error) {
	url, _ := m.Values[fieldURL].(string)
	websiteID, _ := m.Values[fieldWebsite].(string)
	if url == "" || websiteID == "" {
		return queue.Delivered{}, fmt.Errorf("malformed stream entry %s: %v", m.ID, m.Values)
	}
	return queue.Delivered{
		EntryID: m.ID,
		Message: queue.Message{URL: url, WebsiteID: websiteID},
	}, nil
}

func isNoGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOGROUP")
}
