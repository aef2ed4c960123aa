package app

import (
	"context"
	"sync"

	"trivia-service/internal/domain"
)

// LeaderboardFeed fans the top of the leaderboard out to live subscribers.
type LeaderboardFeed struct {
	board *LeaderboardService
	size  int

	mu          sync.RWMutex
	latest      *domain.LeaderboardPage
	subscribers map[chan domain.LeaderboardPage]struct{}
}

func NewLeaderboardFeed(board *LeaderboardService, size int) *LeaderboardFeed {
	if size <= 0 {
		size = 10
	}
	return &LeaderboardFeed{
		board:       board,
		size:        size,
		subscribers: make(map[chan domain.LeaderboardPage]struct{}),
	}
}

// Subscribe returns a channel that receives leaderboard snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe(ctx context.Context) (<-chan domain.LeaderboardPage, func(), error) {
	f.mu.RLock()
	initial := f.latest
	f.mu.RUnlock()

	if initial == nil {
		page, err := f.board.Query(ctx, domain.LeaderboardQuery{Limit: f.size})
		if err != nil {
			return nil, nil, err
		}
		initial = &page
	}

	ch := make(chan domain.LeaderboardPage, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	if f.latest == nil {
		f.latest = initial
	} else {
		initial = f.latest
	}
	ch <- *initial
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// Refresh recomputes the top of the leaderboard and broadcasts it.
func (f *LeaderboardFeed) Refresh(ctx context.Context) error {
	page, err := f.board.Query(ctx, domain.LeaderboardQuery{Limit: f.size})
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = &page
	f.broadcastLocked(page)
	return nil
}

// Subscribers reports how many live subscribers are attached.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *LeaderboardFeed) broadcastLocked(page domain.LeaderboardPage) {
	for ch := range f.subscribers {
		select {
		case ch <- page:
		default:
			// slow subscriber: drop its oldest snapshot so it only ever sees the latest
			select {
			case <-ch:
			default:
			}
			ch <- page
		}
	}
}
