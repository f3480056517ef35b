// Package history keeps the in-memory watering log and decides whether the
// plant may be watered again.
package history

import (
	"sort"
	"time"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
)

// History is owned by the program state and is only touched under its lock.
type History struct {
	records []model.WateringRecord
}

func New(records []model.WateringRecord) *History {
	return &History{records: append([]model.WateringRecord(nil), records...)}
}

func (h *History) Append(r model.WateringRecord) {
	h.records = append(h.records, r)
}

func (h *History) Len() int { return len(h.records) }

// Records returns a copy in insertion order.
func (h *History) Records() []model.WateringRecord {
	return append([]model.WateringRecord(nil), h.records...)
}

// Last returns the record with the latest timestamp, which is not
// necessarily the last one appended if the file was edited by hand.
func (h *History) Last() (model.WateringRecord, bool) {
	if len(h.records) == 0 {
		return model.WateringRecord{}, false
	}
	last := h.records[0]
	for _, r := range h.records[1:] {
		if r.Time.After(last.Time) {
			last = r
		}
	}
	return last, true
}

// MostRecent returns up to n records, newest first.
func (h *History) MostRecent(n int) []model.WateringRecord {
	out := h.Records()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// CheckReady allows watering only when strictly more than interval has
// passed since the latest record. With no records it returns
// fault.ErrNoHistory unless allowWithoutHistory is set.
func (h *History) CheckReady(now time.Time, interval time.Duration, allowWithoutHistory bool) error {
	last, ok := h.Last()
	if !ok {
		if allowWithoutHistory {
			return nil
		}
		return fault.ErrNoHistory
	}
	elapsed := now.Sub(last.Time)
	if elapsed > interval {
		return nil
	}
	return &fault.TooSoonError{Last: last.Time, Elapsed: elapsed, Interval: interval}
}
