package tail

import (
	"sync"

	"github.com/google/uuid"
)

// Notifier fans a change signal out to subscribers without ever blocking the
// publisher. Each subscriber holds a one-slot mailbox: a signal that arrives
// while one is already pending coalesces into it, so a slow reader sees a
// single wakeup covering any number of updates.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]chan struct{}
}

// NewNotifier returns an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]chan struct{})}
}

// Subscribe registers a new mailbox and returns its id and receive channel.
func (n *Notifier) Subscribe() (string, <-chan struct{}) {
	id := uuid.NewString()
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[id] = ch
	n.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a mailbox. Unknown ids are ignored.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}

// Publish signals every subscriber. Mailboxes that already hold a pending
// signal are skipped.
func (n *Notifier) Publish() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of active subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
