package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTickStatus_Valid(t *testing.T) {
	for _, s := range []TickStatus{StatusUp, StatusDown, StatusUnknown} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if TickStatus("up").Valid() {
		t.Fatalf("statuses are case-sensitive; \"up\" should be invalid")
	}
	if TickStatus("").Valid() {
		t.Fatalf("empty status should be invalid")
	}
}

func TestTick_JSONContract(t *testing.T) {
	tick := Tick{
		ID:             "t1",
		WebsiteID:      "w1",
		RegionID:       "r1",
		Status:         StatusUp,
		ResponseTimeMS: 125,
		CreatedAt:      time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(tick)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The dashboard depends on these exact field names.
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"response_time_ms", "status", "region_id", "website_id", "createdAt"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing contract field %q in %s", key, b)
		}
	}
	if m["status"] != "Up" {
		t.Fatalf("status should serialize as %q, got %v", "Up", m["status"])
	}
}
