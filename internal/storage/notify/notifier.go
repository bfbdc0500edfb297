// Package notify fans out profile snapshots to session watchers. Every
// profile write flows through this process, so an in-process notifier is
// the source of truth for live updates.
package notify

import (
	"sync"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
)

const subscriberBuffer = 16

// ProfileNotifier tracks per-user subscribers and publishes snapshots
// after each profile write.
type ProfileNotifier struct {
	mu     sync.RWMutex
	subs   map[string]map[chan models.Profile]struct{}
	logger *common.Logger
}

// NewProfileNotifier creates a notifier.
func NewProfileNotifier(logger *common.Logger) *ProfileNotifier {
	return &ProfileNotifier{
		subs:   make(map[string]map[chan models.Profile]struct{}),
		logger: logger,
	}
}

// Subscribe registers a watcher for uid. The returned cancel func removes
// the subscription and closes the channel; it is safe to call twice.
func (n *ProfileNotifier) Subscribe(uid string) (<-chan models.Profile, func()) {
	ch := make(chan models.Profile, subscriberBuffer)

	n.mu.Lock()
	if n.subs[uid] == nil {
		n.subs[uid] = make(map[chan models.Profile]struct{})
	}
	n.subs[uid][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if set, ok := n.subs[uid]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(n.subs, uid)
				}
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the profile's user.
// Slow subscribers are skipped rather than blocked on; a watcher that falls
// behind still converges on the next write.
func (n *ProfileNotifier) Publish(profile models.Profile) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.subs[profile.UID] {
		select {
		case ch <- profile:
		default:
			n.logger.Warn().Str("uid", profile.UID).Msg("Profile watcher is slow, dropping snapshot")
		}
	}
}

// SubscriberCount returns the number of active subscriptions for uid.
func (n *ProfileNotifier) SubscriberCount(uid string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[uid])
}
