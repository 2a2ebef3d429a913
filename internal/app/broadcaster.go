package app

import (
	"sync"

	"trivia-board-service/internal/domain"
)

// Broadcaster fans game snapshots out to live subscribers (scoreboards, second screens).
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Game]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]map[chan domain.Game]struct{}),
	}
}

// Subscribe returns a channel of the updates published for one game from now on. Nothing is
// replayed: read the current game after subscribing. The caller must invoke the returned
// cancel function to avoid leaks.
func (b *Broadcaster) Subscribe(gameID string) (<-chan domain.Game, func()) {
	ch := make(chan domain.Game, 8)

	b.mu.Lock()
	subs, ok := b.subscribers[gameID]
	if !ok {
		subs = make(map[chan domain.Game]struct{})
		b.subscribers[gameID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[gameID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(b.subscribers, gameID)
			}
		}
	}
	return ch, cancel
}

// Publish pushes a snapshot to every subscriber of the game.
func (b *Broadcaster) Publish(game domain.Game) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[game.ID] {
		select {
		case ch <- game:
		default:
			// Slow subscriber: drop its oldest pending snapshot, the newest one supersedes it.
			select {
			case <-ch:
			default:
			}
			ch <- game
		}
	}
}

// Close ends every subscription of a deleted game.
func (b *Broadcaster) Close(gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[gameID] {
		close(ch)
	}
	delete(b.subscribers, gameID)
}

// SubscriberCount reports how many live subscribers a game has.
func (b *Broadcaster) SubscriberCount(gameID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[gameID])
}
