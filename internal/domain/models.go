package domain

import "time"

// TickStatus is the probe status taxonomy. Unknown is never written by the
// worker; it is the display status for a website with no ticks yet.
type TickStatus string

const (
	StatusUp      TickStatus = "Up"
	StatusDown    TickStatus = "Down"
	StatusUnknown TickStatus = "Unknown"
)

func (s TickStatus) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusUnknown:
		return true
	}
	return false
}

// Region is a named probing origin with its own work queue.
type Region struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Website is a monitored target. URL is stored scheme-less (host plus
// optional path); the prober prepends https:// before attempting.
type Website struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tick is one immutable probe result. The JSON field names are an external
// schema contract shared with the dashboard.
type Tick struct {
	ID             string     `json:"id"`
	WebsiteID      string     `json:"website_id"`
	RegionID       string     `json:"region_id"`
	Status         TickStatus `json:"status"`
	ResponseTimeMS int        `json:"response_time_ms"`
	CreatedAt      time.Time  `json:"createdAt"`
}
