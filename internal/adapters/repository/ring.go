package repository

import (
	"maps"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
)

// ring is a fixed-capacity FIFO of events.
type ring struct {
	buf   []model.AgentEvent
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]model.AgentEvent, capacity)}
}

// push appends ev and reports whether the oldest event was overwritten.
func (r *ring) push(ev model.AgentEvent) bool {
	capacity := len(r.buf)
	if r.size < capacity {
		r.buf[(r.start+r.size)%capacity] = ev
		r.size++
		return false
	}
	r.buf[r.start] = ev
	r.start = (r.start + 1) % capacity
	return true
}

// items returns the events oldest first. Fields maps are copied so callers
// cannot reach stored events.
func (r *ring) items() []model.AgentEvent {
	out := make([]model.AgentEvent, r.size)
	for i := 0; i < r.size; i++ {
		ev := r.buf[(r.start+i)%len(r.buf)]
		ev.Fields = maps.Clone(ev.Fields)
		out[i] = ev
	}
	return out
}
