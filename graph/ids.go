package graph

import "sync"

// Kind identifies an entity kind. Each kind has its own id sequence.
type Kind int

const (
	KindUser Kind = iota
	KindChat
	KindMessage
	KindPost
	KindComment
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindChat:
		return "chat"
	case KindMessage:
		return "message"
	case KindPost:
		return "post"
	case KindComment:
		return "comment"
	}
	return "unknown"
}

// IDAllocator hands out per-kind ids starting at 1. It is safe for concurrent
// use and may be shared between graphs.
type IDAllocator struct {
	mu   sync.Mutex
	last [numKinds]int64
}

// NewIDAllocator returns an allocator with every sequence at its start.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next id for kind.
func (a *IDAllocator) Next(kind Kind) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last[kind]++
	return a.last[kind]
}

// Peek returns the id the next call to Next would return, without consuming it.
func (a *IDAllocator) Peek(kind Kind) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last[kind] + 1
}

// Advance moves the sequence of kind so that Next returns ids above last. A
// sequence never moves backwards. It is used to continue numbering from ids
// already persisted elsewhere.
func (a *IDAllocator) Advance(kind Kind, last int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if last > a.last[kind] {
		a.last[kind] = last
	}
}

// Reset restarts every sequence at 1.
func (a *IDAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = [numKinds]int64{}
}
