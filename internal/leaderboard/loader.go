// Package leaderboard incrementally pages through the ranked leaderboard for a scrolling view.
package leaderboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"trivia-service/internal/domain"
)

const (
	DefaultPageSize = 20
	// ScrollThreshold is how close to the bottom (in rows) a scroll must get to load the next page.
	ScrollThreshold = 24
	fillSlack       = 2
)

// Fetcher reads one page of the leaderboard.
type Fetcher interface {
	Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (domain.LeaderboardPage, error)
}

// Viewport describes the scroll container the entries are rendered into.
type Viewport struct {
	ScrollTop    int
	ClientHeight int
	ScrollHeight int
}

// NearBottom reports whether the view is scrolled to within threshold of the end.
func (v Viewport) NearBottom(threshold int) bool {
	return v.ScrollTop+v.ClientHeight >= v.ScrollHeight-threshold
}

// Underfilled reports whether the content is too short to scroll.
func (v Viewport) Underfilled() bool {
	return v.ScrollHeight <= v.ClientHeight+fillSlack
}

// State is a copy of the loader's progress.
type State struct {
	Entries []domain.RankedEntry
	Offset  int
	HasMore bool
	Loading bool
	Err     error
}

// Loader accumulates leaderboard pages. At most one fetch is in flight at a time.
type Loader struct {
	fetcher     Fetcher
	pageSize    int
	onlyPerfect bool
	logger      *zap.Logger

	mu      sync.Mutex
	entries []domain.RankedEntry
	offset  int
	hasMore bool
	loading bool
	closed  bool
	err     error
}

type Option func(*Loader)

func WithPageSize(size int) Option {
	return func(l *Loader) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

func WithOnlyPerfect(onlyPerfect bool) Option {
	return func(l *Loader) { l.onlyPerfect = onlyPerfect }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadMore fetches the next page, or the first page again when reset is set.
// It returns false without fetching when a fetch is already running, the loader is
// closed, or no more pages are known to exist.
func (l *Loader) LoadMore(ctx context.Context, reset bool) bool {
	l.mu.Lock()
	if l.loading || l.closed || (!reset && !l.hasMore) {
		l.mu.Unlock()
		return false
	}
	l.loading = true
	offset := l.offset
	if reset {
		offset = 0
	}
	l.mu.Unlock()

	page, err := l.fetcher.Leaderboard(ctx, domain.LeaderboardQuery{
		Limit:       l.pageSize,
		Offset:      offset,
		OnlyPerfect: l.onlyPerfect,
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false
	if l.closed {
		return true
	}

	if err != nil {
		// fail closed: stop paging until the next reset
		l.logger.Warn("leaderboard fetch failed", zap.Int("offset", offset), zap.Error(err))
		if reset {
			l.entries = nil
			l.offset = 0
		}
		l.hasMore = false
		l.err = err
		return true
	}

	batch := page.Leaderboard
	if reset {
		l.entries = append([]domain.RankedEntry(nil), batch...)
		l.offset = len(batch)
	} else {
		l.entries = append(l.entries, batch...)
		l.offset += len(batch)
	}
	l.hasMore = page.Pagination.HasMore
	l.err = nil
	return true
}

// OnScroll loads the next page when the viewport is near the bottom.
func (l *Loader) OnScroll(ctx context.Context, v Viewport) bool {
	if !v.NearBottom(ScrollThreshold) {
		return false
	}
	return l.LoadMore(ctx, false)
}

// EnsureFilled loads the next page when the loaded entries do not fill the viewport yet.
func (l *Loader) EnsureFilled(ctx context.Context, v Viewport) bool {
	l.mu.Lock()
	ready := !l.loading && l.hasMore
	l.mu.Unlock()
	if !ready || !v.Underfilled() {
		return false
	}
	return l.LoadMore(ctx, false)
}

// Close stops the loader; responses that arrive afterwards are discarded.
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Entries: append([]domain.RankedEntry(nil), l.entries...),
		Offset:  l.offset,
		HasMore: l.hasMore,
		Loading: l.loading,
		Err:     l.err,
	}
}
