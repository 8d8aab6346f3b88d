package unlockset

import (
	"sync"

	"vaultline/internal/unlock/models"
	"vaultline/pkg/domain"
)

// subscription delivers snapshots through a one-slot buffer. A pending
// snapshot the consumer has not read yet is replaced by the newer one.
type subscription struct {
	owner string
	ch    chan models.UnlockSet
}

// hub fans snapshots out to the subscribers of each owner.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	latest map[string]models.UnlockSet
}

func newHub() *hub {
	return &hub{
		subs:   make(map[string]map[*subscription]struct{}),
		latest: make(map[string]models.UnlockSet),
	}
}

// subscribe registers a subscription and seeds it with initial.
func (h *hub) subscribe(owner string, initial models.UnlockSet) *subscription {
	sub := &subscription{owner: owner, ch: make(chan models.UnlockSet, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(owner, initial)
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*subscription]struct{})
	}
	h.subs[owner][sub] = struct{}{}
	h.latest[owner] = initial
	sub.ch <- initial
	return sub
}

// unsubscribe closes the subscription channel exactly once.
func (h *hub) unsubscribe(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subs[sub.owner]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subs, sub.owner)
		delete(h.latest, sub.owner)
	}
}

// publish delivers set to every subscriber of owner unless it equals the
// last delivered snapshot. It never blocks.
func (h *hub) publish(owner string, set models.UnlockSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(owner, set)
}

func (h *hub) publishLocked(owner string, set models.UnlockSet) {
	subs := h.subs[owner]
	if len(subs) == 0 {
		return
	}
	if last, ok := h.latest[owner]; ok && last.Equal(set) {
		return
	}
	h.latest[owner] = set
	for sub := range subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- set
	}
}

// extend publishes the last delivered snapshot of owner plus id. It reports
// false when owner has no subscribers and so no delivered snapshot.
func (h *hub) extend(owner string, id domain.EntityID) (models.UnlockSet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	last, ok := h.latest[owner]
	if !ok {
		return models.UnlockSet{}, false
	}
	next := last.With(id)
	h.publishLocked(owner, next)
	return next, true
}

func (h *hub) subscriberCount(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[owner])
}
