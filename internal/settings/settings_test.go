package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/realtime"
)

type memStore struct {
	s    JobVacancySetting
	ok   bool
	gets int
}

func (m *memStore) Get(context.Context) (JobVacancySetting, bool, error) {
	m.gets++
	return m.s, m.ok, nil
}

func (m *memStore) Put(_ context.Context, s JobVacancySetting) error {
	m.s, m.ok = s, true
	return nil
}

type fakeCache struct {
	data map[string]string
	err  error
}

func (c *fakeCache) Get(_ context.Context, key string) *redis.StringCmd {
	if c.err != nil {
		return redis.NewStringResult("", c.err)
	}
	v, ok := c.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if c.err != nil {
		return redis.NewStatusResult("", c.err)
	}
	c.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(c.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type recordingNotifier struct{ paths []string }

func (n *recordingNotifier) Notify(_ context.Context, path string, _ any) error {
	n.paths = append(n.paths, path)
	return nil
}

func TestGetDefaultsToOpen(t *testing.T) {
	b := NewBroadcaster(&memStore{}, nil, time.Minute, &recordingNotifier{}, zerolog.Nop())

	s, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, s.JobVacancyOpen)
}

func TestGetReadsThroughCache(t *testing.T) {
	store := &memStore{s: JobVacancySetting{JobVacancyOpen: false}, ok: true}
	cache := &fakeCache{data: map[string]string{}}
	b := NewBroadcaster(store, cache, time.Minute, &recordingNotifier{}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := b.Get(ctx)
		require.NoError(t, err)
		assert.False(t, s.JobVacancyOpen)
	}
	assert.Equal(t, 1, store.gets)

	_, err := b.SetJobVacancyOpen(ctx, true)
	require.NoError(t, err)
	assert.NotContains(t, cache.data, cacheKey())

	s, err := b.Get(ctx)
	require.NoError(t, err)
	assert.True(t, s.JobVacancyOpen)
	assert.Equal(t, 2, store.gets)
}

func TestGetFallsBackWhenCacheFails(t *testing.T) {
	store := &memStore{s: JobVacancySetting{JobVacancyOpen: false}, ok: true}
	cache := &fakeCache{data: map[string]string{}, err: errors.New("connection refused")}
	b := NewBroadcaster(store, cache, time.Minute, &recordingNotifier{}, zerolog.Nop())

	s, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, s.JobVacancyOpen)
}

func TestWatchEmitsCurrentThenChanges(t *testing.T) {
	n := &recordingNotifier{}
	b := NewBroadcaster(&memStore{}, nil, time.Minute, n, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Watch(ctx)
	require.NoError(t, err)
	assert.Equal(t, Visibility{ShowJobVacancyTab: true, ShowPromoBanner: true}, <-ch)

	_, err = b.SetJobVacancyOpen(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, Visibility{}, <-ch)
	assert.Equal(t, []string{Path}, n.paths)

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestWatchSlowReaderSeesLatest(t *testing.T) {
	b := NewBroadcaster(&memStore{}, nil, time.Minute, &recordingNotifier{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Watch(ctx)
	require.NoError(t, err)

	_, err = b.SetJobVacancyOpen(ctx, false)
	require.NoError(t, err)
	_, err = b.SetJobVacancyOpen(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, Visibility{ShowJobVacancyTab: true, ShowPromoBanner: true}, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %+v", v)
	default:
	}
}

func TestFollowAppliesRemoteChanges(t *testing.T) {
	b := NewBroadcaster(&memStore{}, nil, time.Minute, &recordingNotifier{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Watch(ctx)
	require.NoError(t, err)
	<-ch

	data, err := json.Marshal(JobVacancySetting{JobVacancyOpen: false})
	require.NoError(t, err)
	snaps := make(chan realtime.Snapshot, 1)
	snaps <- realtime.Snapshot{Path: Path, Data: data, Sequence: 1}
	close(snaps)

	b.Follow(ctx, snaps)
	assert.Equal(t, Visibility{}, <-ch)
}

func TestPostgresStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM admin_config WHERE key=\$1`).
		WithArgs("jobVacancySettings").
		WillReturnRows(mock.NewRows([]string{"value"}))
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(JobVacancySetting{JobVacancyOpen: false, UpdatedAt: at})
	require.NoError(t, err)
	mock.ExpectExec(`INSERT INTO admin_config`).
		WithArgs("jobVacancySettings", raw, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT value FROM admin_config`).
		WithArgs("jobVacancySettings").
		WillReturnRows(mock.NewRows([]string{"value"}).AddRow(raw))

	store := NewPostgresStore(mock)
	ctx := context.Background()

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, JobVacancySetting{JobVacancyOpen: false, UpdatedAt: at}))

	s, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s.JobVacancyOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}
