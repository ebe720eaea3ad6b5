package service

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/require"
)

type stubViewStories struct {
	increments int
	byStory    map[uint64]int
}

func (s *stubViewStories) IncrementView(_ context.Context, storyID uint64) error {
	s.increments++
	if s.byStory == nil {
		s.byStory = map[uint64]int{}
	}
	s.byStory[storyID]++
	return nil
}

func newTestViewService(store *stubViewStories, clock *time.Time) *ViewService {
	return &ViewService{
		stories: store,
		seen:    expirable.NewLRU[string, *viewEntry](64, nil, time.Hour),
		now:     func() time.Time { return *clock },
	}
}

func TestTrackRapidViewsCountOnce(t *testing.T) {
	store := &stubViewStories{}
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestViewService(store, &clock)
	ctx := context.Background()

	counted, err := svc.Track(ctx, 1, 10, 2)
	require.NoError(t, err)
	require.True(t, counted)

	// 冷却期内连刷两次，都不计
	for i := 0; i < 2; i++ {
		clock = clock.Add(time.Second)
		counted, err = svc.Track(ctx, 1, 10, 2)
		require.NoError(t, err)
		require.False(t, counted)
	}
	require.Equal(t, 1, store.increments)

	// 过了冷却期又算一次
	clock = clock.Add(6 * time.Second)
	counted, err = svc.Track(ctx, 1, 10, 2)
	require.NoError(t, err)
	require.True(t, counted)
	require.Equal(t, 2, store.increments)
}

func TestTrackCapsAtFivePerPair(t *testing.T) {
	store := &stubViewStories{}
	clock := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestViewService(store, &clock)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.Track(ctx, 1, 10, 2)
		require.NoError(t, err)
		clock = clock.Add(10 * time.Second)
	}
	require.Equal(t, 5, store.increments)

	// 上限按(viewer,story)对算，换个story重新计
	counted, err := svc.Track(ctx, 1, 11, 2)
	require.NoError(t, err)
	require.True(t, counted)
	require.Equal(t, 1, store.byStory[11])
}

func TestTrackSkipsOwnerAndAnonymous(t *testing.T) {
	store := &stubViewStories{}
	clock := time.Now()
	svc := newTestViewService(store, &clock)
	ctx := context.Background()

	counted, err := svc.Track(ctx, 2, 10, 2)
	require.NoError(t, err)
	require.False(t, counted)

	counted, err = svc.Track(ctx, 0, 10, 2)
	require.NoError(t, err)
	require.False(t, counted)

	require.Zero(t, store.increments)
}

func TestTrackPairsAreIndependent(t *testing.T) {
	store := &stubViewStories{}
	clock := time.Now()
	svc := newTestViewService(store, &clock)
	ctx := context.Background()

	counted, err := svc.Track(ctx, 1, 10, 2)
	require.NoError(t, err)
	require.True(t, counted)

	// 另一个viewer不受前者的冷却影响
	counted, err = svc.Track(ctx, 3, 10, 2)
	require.NoError(t, err)
	require.True(t, counted)
	require.Equal(t, 2, store.increments)
}
