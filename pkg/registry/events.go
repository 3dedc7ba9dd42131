package registry

import (
	"sync"
	"time"

	"github.com/velsand/tokengate/pkg/model"
)

type EventType string

const (
	EventSecretCreated EventType = "secret-created"
	EventSecretUpdated EventType = "secret-updated"
	EventAccessGranted EventType = "access-granted"
)

// Event is emitted after a registry mutation commits.
type Event struct {
	Type     EventType      `json:"type"`
	SecretID model.SecretID `json:"secretId"`
	Actor    model.Address  `json:"actor"`
	Title    string         `json:"title,omitempty"`
	Gate     model.GateKind `json:"gate,omitempty"`
	At       time.Time      `json:"at"`
}

// Broadcaster fans events out to subscribers. Delivery is best-effort: a
// subscriber that stops draining its channel loses events rather than
// blocking registry mutations.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel and a cancel function that
// closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

func (b *Broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
