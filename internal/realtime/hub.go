// Package realtime fans document snapshots out to in-process subscribers.
//
// Subscribers register for a document path ("orders/o-1") or a whole
// collection ("orders"). Delivery per path follows write order, and a slow
// subscriber never blocks a writer: when its buffer is full the oldest
// pending snapshot is dropped.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultBuffer = 16

// Snapshot is the state of one document after a write.
type Snapshot struct {
	Path     string          `json:"path"`
	Data     json.RawMessage `json:"data,omitempty"`
	Deleted  bool            `json:"deleted"`
	Sequence int64           `json:"sequence"`
	At       time.Time       `json:"at"`
}

// Collection returns the first path segment.
func (s Snapshot) Collection() string {
	return Collection(s.Path)
}

func Collection(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	lastSeq map[string]int64
	buffer  int
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		lastSeq: make(map[string]int64),
		buffer:  defaultBuffer,
		logger:  logger,
		now:     time.Now,
	}
}

// Subscription must be closed by its owner: defer sub.Close().
type Subscription struct {
	hub  *Hub
	key  string
	ch   chan Snapshot
	once sync.Once
}

// C delivers snapshots until Close is called.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Subscribe registers for a document path or a collection name.
func (h *Hub) Subscribe(path string) *Subscription {
	sub := &Subscription{hub: h, key: path, ch: make(chan Snapshot, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[path]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[path] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.key)
			h.forget(sub.key)
		}
	}
	close(sub.ch)
}

// forget drops sequence entries nobody is subscribed to any more.
func (h *Hub) forget(key string) {
	if Collection(key) != key {
		if !h.watched(key) {
			delete(h.lastSeq, key)
		}
		return
	}
	for path := range h.lastSeq {
		if Collection(path) == key && !h.watched(path) {
			delete(h.lastSeq, path)
		}
	}
}

func (h *Hub) watched(path string) bool {
	return len(h.subs[path]) > 0 || len(h.subs[Collection(path)]) > 0
}

// Publish delivers a snapshot to subscribers of its path and collection.
// A zero Sequence is assigned locally. Snapshots at or below the last
// delivered sequence for the path are ignored and Publish reports false.
// Paths without subscribers keep no state.
func (h *Hub) Publish(s Snapshot) bool {
	if s.At.IsZero() {
		s.At = h.now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Sequences are only tracked while someone listens on the path.
	if !h.watched(s.Path) {
		return true
	}

	last := h.lastSeq[s.Path]
	if s.Sequence == 0 {
		s.Sequence = last + 1
	} else if s.Sequence <= last {
		h.logger.Debug().Str("path", s.Path).Int64("sequence", s.Sequence).Msg("stale snapshot ignored")
		return false
	}
	h.lastSeq[s.Path] = s.Sequence

	h.deliver(s.Path, s)
	if coll := s.Collection(); coll != s.Path {
		h.deliver(coll, s)
	}
	return true
}

func (h *Hub) deliver(key string, s Snapshot) {
	for sub := range h.subs[key] {
		select {
		case sub.ch <- s:
			continue
		default:
		}
		// Full: drop the oldest pending snapshot and retry once.
		select {
		case <-sub.ch:
			h.logger.Warn().Str("path", s.Path).Msg("slow subscriber, dropped oldest snapshot")
		default:
		}
		select {
		case sub.ch <- s:
		default:
		}
	}
}

// Notify publishes the current state of a document.
func (h *Hub) Notify(_ context.Context, path string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", path, err)
	}
	h.Publish(Snapshot{Path: path, Data: data})
	return nil
}

// NotifyDeleted publishes a deletion marker for a document.
func (h *Hub) NotifyDeleted(_ context.Context, path string) error {
	h.Publish(Snapshot{Path: path, Deleted: true})
	return nil
}
