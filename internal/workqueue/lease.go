package workqueue

import (
	"sort"
	"time"

	toyov1 "github.com/cocuh/toyosatomimi/api/toyo/v1"
	"github.com/cocuh/toyosatomimi/pkg/id"
)

// DefaultInFlightLimit bounds the in-flight table. Workers that crash never
// release their entries, so the oldest are evicted past this size.
const DefaultInFlightLimit = 10000

// Delivery records one job handed out by get.
type Delivery struct {
	ID          string     `json:"id"`
	Job         toyov1.Job `json:"job"`
	DeliveredAt time.Time  `json:"delivered_at"`
}

// InFlight tracks deliveries that have not been reported back yet.
type InFlight struct {
	gen   *id.Generator
	byID  map[string]Delivery
	limit int
}

// NewInFlight creates a table bounded by limit entries. A limit <= 0 uses
// DefaultInFlightLimit.
func NewInFlight(gen *id.Generator, limit int) *InFlight {
	if gen == nil {
		gen = id.NewGenerator()
	}
	if limit <= 0 {
		limit = DefaultInFlightLimit
	}
	return &InFlight{gen: gen, byID: make(map[string]Delivery), limit: limit}
}

// Track assigns a new delivery id to j.
func (t *InFlight) Track(j toyov1.Job, now time.Time) Delivery {
	if len(t.byID) >= t.limit {
		t.evictOldest()
	}
	d := Delivery{ID: t.gen.Next().String(), Job: j, DeliveredAt: now}
	t.byID[d.ID] = d
	return d
}

// Release forgets the delivery with the given id. ok is false for an empty or
// unknown id.
func (t *InFlight) Release(deliveryID string) (Delivery, bool) {
	if deliveryID == "" {
		return Delivery{}, false
	}
	d, ok := t.byID[deliveryID]
	if ok {
		delete(t.byID, deliveryID)
	}
	return d, ok
}

// Len returns the number of tracked deliveries.
func (t *InFlight) Len() int { return len(t.byID) }

// List returns deliveries oldest first. Ids sort chronologically.
func (t *InFlight) List() []Delivery {
	out := make([]Delivery, 0, len(t.byID))
	for _, d := range t.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *InFlight) evictOldest() {
	oldest := ""
	for k := range t.byID {
		if oldest == "" || k < oldest {
			oldest = k
		}
	}
	delete(t.byID, oldest)
}
