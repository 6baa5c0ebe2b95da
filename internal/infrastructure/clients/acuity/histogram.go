package acuity

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const histogramLabelLayout = "2006-01-02 15:04:05"

// HistogramBucket is the number of calls attempted within one wall-clock second.
type HistogramBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CallHistogram counts attempted calls per second. Buckets are evicted in
// insertion order once capacity is reached; recording never promotes a
// bucket.
type CallHistogram struct {
	buckets *lru.Cache[string, *atomic.Int64]
	loc     *time.Location
}

// NewCallHistogram creates a histogram that keeps at most capacity buckets,
// labelled in loc.
func NewCallHistogram(capacity int, loc *time.Location) (*CallHistogram, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("histogram capacity must be positive, got %d", capacity)
	}
	if loc == nil {
		loc = time.UTC
	}
	buckets, err := lru.New[string, *atomic.Int64](capacity)
	if err != nil {
		return nil, err
	}
	return &CallHistogram{buckets: buckets, loc: loc}, nil
}

// Record counts one call attempted at instant at.
func (h *CallHistogram) Record(at time.Time) {
	label := at.In(h.loc).Format(histogramLabelLayout)

	fresh := new(atomic.Int64)
	counter := fresh
	if prev, found, _ := h.buckets.PeekOrAdd(label, fresh); found {
		counter = prev
	}
	counter.Add(1)
}

// Snapshot returns the retained buckets, newest first.
func (h *CallHistogram) Snapshot() []HistogramBucket {
	keys := h.buckets.Keys()
	out := make([]HistogramBucket, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		counter, ok := h.buckets.Peek(keys[i])
		if !ok {
			continue
		}
		out = append(out, HistogramBucket{Label: keys[i], Count: counter.Load()})
	}
	return out
}

// Len returns the number of retained buckets.
func (h *CallHistogram) Len() int {
	return h.buckets.Len()
}
