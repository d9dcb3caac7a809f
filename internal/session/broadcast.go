package session

import "sync"

// broadcastBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind is considered lagged: its oldest unread events
// are dropped and it receives a ClientEventLag marker in their place
// rather than blocking the actor.
const broadcastBuffer = 256

// broadcaster fans one session's ClientEvents out to any number of
// subscribers. Slow subscribers lag and lose intermediate events but
// never lose position: a full channel triggers a drop-oldest,
// replace-with-lag-notice policy instead of blocking the publisher.
type broadcaster struct {
	mu   sync.Mutex
	subs map[uint64]chan ClientEvent
	next uint64
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uint64]chan ClientEvent)}
}

// Subscribe returns a receive channel that will see every event
// published from this point forward (no replay of history) and an
// unsubscribe function the caller must eventually call.
func (b *broadcaster) Subscribe() (<-chan ClientEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan ClientEvent, broadcastBuffer)
	b.subs[id] = ch
	return ch, func() { b.unsubscribe(id) }
}

func (b *broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers ev to every current subscriber, never blocking. A
// subscriber whose buffer is full has its two oldest pending events
// dropped; a ClientEventLag marker counting them, then ev, take their
// place.
func (b *broadcaster) Publish(ev ClientEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped := 0
			for i := 0; i < 2; i++ {
				select {
				case <-ch:
					dropped++
				default:
				}
			}
			if dropped > 0 {
				select {
				case ch <- ClientEvent{Kind: ClientEventLag, SessionID: ev.SessionID, Dropped: dropped}:
				default:
				}
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Close shuts down every subscriber channel, e.g. when a session is
// evicted or deleted.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
