// Package settings holds the admin feature toggles and pushes their derived
// visibility flags to every watching session.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/realtime"
)

// Visibility is what client sessions render. Both flags derive from the same
// setting so the vacancy tab and the promo banner never disagree.
type Visibility struct {
	ShowJobVacancyTab bool `json:"showJobVacancyTab"`
	ShowPromoBanner   bool `json:"showPromoBanner"`
}

func VisibilityOf(s JobVacancySetting) Visibility {
	return Visibility{ShowJobVacancyTab: s.JobVacancyOpen, ShowPromoBanner: s.JobVacancyOpen}
}

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
}

type Broadcaster struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	watchers map[chan Visibility]struct{}
	last     *Visibility
}

// NewBroadcaster builds a broadcaster. cache may be nil.
func NewBroadcaster(store Store, cache Cache, cacheTTL time.Duration, notifier Notifier, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		watchers: make(map[chan Visibility]struct{}),
	}
}

// Get returns the current setting, defaulting to open when never saved.
func (b *Broadcaster) Get(ctx context.Context) (JobVacancySetting, error) {
	if s, ok := b.cached(ctx); ok {
		return s, nil
	}

	s, ok, err := b.store.Get(ctx)
	if err != nil {
		return JobVacancySetting{}, err
	}
	if !ok {
		s = DefaultJobVacancy
	}
	b.fill(ctx, s)
	return s, nil
}

// SetJobVacancyOpen saves the toggle and pushes the new visibility.
func (b *Broadcaster) SetJobVacancyOpen(ctx context.Context, open bool) (JobVacancySetting, error) {
	s := JobVacancySetting{JobVacancyOpen: open, UpdatedAt: b.now().UTC()}
	if err := b.store.Put(ctx, s); err != nil {
		return JobVacancySetting{}, err
	}
	b.invalidate(ctx)
	b.broadcast(VisibilityOf(s))

	if err := b.notifier.Notify(ctx, Path, s); err != nil {
		b.logger.Warn().Err(err).Msg("notify job vacancy setting")
	}
	b.logger.Info().Bool("job_vacancy_open", open).Msg("job vacancy setting changed")
	return s, nil
}

// Watch emits the current visibility immediately and again after every
// change until ctx is done. A slow reader only sees the latest value.
func (b *Broadcaster) Watch(ctx context.Context) (<-chan Visibility, error) {
	s, err := b.Get(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan Visibility, 1)
	ch <- VisibilityOf(s)

	b.mu.Lock()
	b.watchers[ch] = struct{}{}
	if b.last == nil {
		v := VisibilityOf(s)
		b.last = &v
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.watchers, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// Follow applies setting snapshots written by other processes until the
// channel closes or ctx is done.
func (b *Broadcaster) Follow(ctx context.Context, snapshots <-chan realtime.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			s := DefaultJobVacancy
			if !snap.Deleted {
				if err := json.Unmarshal(snap.Data, &s); err != nil {
					b.logger.Warn().Err(err).Msg("decode job vacancy snapshot")
					continue
				}
			}
			b.invalidate(ctx)
			b.broadcast(VisibilityOf(s))
		}
	}
}

func (b *Broadcaster) broadcast(v Visibility) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil && *b.last == v {
		return
	}
	b.last = &v
	for ch := range b.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (b *Broadcaster) cached(ctx context.Context) (JobVacancySetting, bool) {
	if b.cache == nil {
		return JobVacancySetting{}, false
	}
	raw, err := b.cache.Get(ctx, cacheKey()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			b.logger.Warn().Err(err).Msg("settings cache read failed, using database")
		}
		return JobVacancySetting{}, false
	}
	var s JobVacancySetting
	if err := json.Unmarshal(raw, &s); err != nil {
		b.logger.Warn().Err(err).Msg("settings cache entry unreadable")
		return JobVacancySetting{}, false
	}
	return s, true
}

func (b *Broadcaster) fill(ctx context.Context, s JobVacancySetting) {
	if b.cache == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := b.cache.Set(ctx, cacheKey(), string(raw), b.cacheTTL).Err(); err != nil {
		b.logger.Warn().Err(err).Msg("settings cache write failed")
	}
}

func (b *Broadcaster) invalidate(ctx context.Context) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Del(ctx, cacheKey()).Err(); err != nil {
		b.logger.Warn().Err(fmt.Errorf("invalidate %s: %w", cacheKey(), err)).Msg("settings cache invalidate failed")
	}
}
