// Package queue defines the per-region work log with competing-consumer
// group semantics: ordered, at-least-once, acknowledged delivery.
package queue

import (
	"context"
	"errors"
)

var (
	// ErrGroupExists is returned by CreateGroup when the region's group is
	// already initialized. Callers must treat it as non-fatal; the log and
	// the group's delivery cursor are untouched.
	ErrGroupExists = errors.New("consumer group already exists")
	// ErrNoGroup is returned by ReadGroup before CreateGroup was called for
	// the region.
	ErrNoGroup = errors.New("consumer group does not exist")
)

// Message is one unit of probing work. Entries with an empty URL or website
// id are rejected at append time rather than propagated.
type Message struct {
	URL       string
	WebsiteID string
}

// Delivered is a message claimed by a consumer, identified by its log entry
// id until acknowledged.
type Delivered struct {
	EntryID string
	Message Message
}

// Queue is the region log + consumer group port. One group per region.
//
// Guarantees required of implementations:
//   - AppendBulk appends in call order to the region's log tail and returns
//     once durably appended.
//   - ReadGroup never hands overlapping entries to concurrent readers of the
//     same region, preserves log order, and returns an empty slice (not an
//     error) when nothing is deliverable. Implementations with a reclaim
//     window redeliver pending entries idle longer than the window first.
//   - AckBulk is idempotent: unknown or already-acknowledged ids are no-ops.
type Queue interface {
	CreateGroup(ctx context.Context, regionID string) error
	// DestroyGroup drops the group state but retains the log, so a
	// subsequent CreateGroup starts delivery from the log head again.
	// Destroying a missing group is a no-op.
	DestroyGroup(ctx context.Context, regionID string) error
	AppendBulk(ctx context.Context, regionID string, msgs []Message) error
	ReadGroup(ctx context.Context, regionID, consumerID string, maxCount int) ([]Delivered, error)
	AckBulk(ctx context.Context, regionID string, entryIDs []string) error
}
