package service

import (
	"sort"
	"sync"
	"time"

	"github.com/moni-del/dragon-d/internal/domain"
)

// DefaultFlyingItemTTL is how long an add-to-cart animation hint lives.
const DefaultFlyingItemTTL = 800 * time.Millisecond

// FlyingItemSink receives flying-item hints emitted by the engine.
type FlyingItemSink interface {
	Emit(item domain.FlyingItem)
}

// FlyingFeed keeps flying items in memory per session. Each item removes
// itself once its lifetime is over, acknowledged or not.
type FlyingFeed struct {
	mu    sync.Mutex
	items map[string]map[string]domain.FlyingItem
}

// NewFlyingFeed creates an empty feed.
func NewFlyingFeed() *FlyingFeed {
	return &FlyingFeed{items: make(map[string]map[string]domain.FlyingItem)}
}

// Emit stores item and schedules its removal at ExpiresAt.
func (f *FlyingFeed) Emit(item domain.FlyingItem) {
	f.mu.Lock()
	bySession, ok := f.items[item.SessionID]
	if !ok {
		bySession = make(map[string]domain.FlyingItem)
		f.items[item.SessionID] = bySession
	}
	bySession[item.ID] = item
	f.mu.Unlock()

	time.AfterFunc(item.ExpiresAt.Sub(item.CreatedAt), func() {
		f.remove(item.SessionID, item.ID)
	})
}

// Active returns the session's live items, oldest first.
func (f *FlyingFeed) Active(sessionID string) []domain.FlyingItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.FlyingItem, 0, len(f.items[sessionID]))
	for _, it := range f.items[sessionID] {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (f *FlyingFeed) remove(sessionID, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bySession := f.items[sessionID]
	delete(bySession, id)
	if len(bySession) == 0 {
		delete(f.items, sessionID)
	}
}
