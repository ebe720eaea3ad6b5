package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"FailTales/internal/model"
	"FailTales/internal/pkg"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubFeedFollows struct {
	briefs []model.UserBrief
	err    error
}

func (s *stubFeedFollows) FollowingBriefs(context.Context, uint64) ([]model.UserBrief, error) {
	return s.briefs, s.err
}

type stubFeedStories struct {
	primary  []model.Story
	fallback []model.Story
	total    int64

	gotKeys []string
	gotIDs  []uint64
}

func (s *stubFeedStories) ListFeedByUsernames(_ context.Context, keys []string, _, _ int) ([]model.Story, error) {
	s.gotKeys = keys
	return s.primary, nil
}

func (s *stubFeedStories) ListFeedByAuthorIDs(_ context.Context, ids []uint64, _, _ int) ([]model.Story, error) {
	s.gotIDs = ids
	return s.fallback, nil
}

func (s *stubFeedStories) CountFeed(context.Context, []string, []uint64) (int64, error) {
	return s.total, nil
}

type stubFeedLikes struct {
	liked map[uint64]bool
}

func (s *stubFeedLikes) LikedSet(context.Context, uint64, []uint64) (map[uint64]bool, error) {
	return s.liked, nil
}

type stubFeedViewers struct {
	known map[uint64]*model.User
}

func (s *stubFeedViewers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := s.known[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestFeedService(follows *stubFeedFollows, stories *stubFeedStories, likes *stubFeedLikes) *FeedService {
	return &FeedService{
		follows: follows,
		stories: stories,
		likes:   likes,
		viewers: &stubFeedViewers{known: map[uint64]*model.User{1: {ID: 1, Username: "viewer"}}},
	}
}

func TestGetFeedEmptyFollowingIsNotAnError(t *testing.T) {
	svc := newTestFeedService(&stubFeedFollows{}, &stubFeedStories{}, &stubFeedLikes{})

	page, err := svc.GetFeed(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.NotNil(t, page.Stories)
	require.Empty(t, page.Stories)
	require.Equal(t, int64(0), page.Pagination.TotalStories)
	require.NotEmpty(t, page.Message)
}

func TestGetFeedViewerChecks(t *testing.T) {
	svc := newTestFeedService(&stubFeedFollows{}, &stubFeedStories{}, &stubFeedLikes{})

	_, err := svc.GetFeed(context.Background(), 0, 1, 20)
	require.Equal(t, pkg.CodeUnauthorized, pkg.CodeOf(err))

	_, err = svc.GetFeed(context.Background(), 99, 1, 20)
	require.Equal(t, pkg.CodeNotFound, pkg.CodeOf(err))
}

func TestGetFeedAnnotations(t *testing.T) {
	long := strings.Repeat("十", 200)
	words := strings.Repeat("word ", 450)
	stories := &stubFeedStories{
		primary: []model.Story{
			{ID: 10, AuthorID: 2, AuthorUsername: "bob", Title: "kv store postmortem", Content: long, LikeCount: 3},
			{ID: 11, AuthorID: 2, AuthorUsername: "Bob", Title: "retry storm", Content: words, ReadTime: 7},
		},
		total: 2,
	}
	follows := &stubFeedFollows{briefs: []model.UserBrief{{ID: 2, Username: "bob", Name: "Bob Lee"}}}
	likes := &stubFeedLikes{liked: map[uint64]bool{10: true}}
	svc := newTestFeedService(follows, stories, likes)

	page, err := svc.GetFeed(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Stories, 2)

	first := page.Stories[0]
	require.Equal(t, string([]rune(long)[:150])+"...", first.Excerpt)
	require.True(t, first.IsLiked)
	require.True(t, first.IsFollowing)
	require.Equal(t, int64(3), first.Likes)
	// 估算：450词 / 200词每分钟，向上取整
	require.Equal(t, 3, ReadTime(0, words))

	second := page.Stories[1]
	require.False(t, second.IsLiked)
	// 快照大小写不同也算关注中
	require.True(t, second.IsFollowing)
	// 存储值优先于估算
	require.Equal(t, 7, second.ReadTime)
}

func TestGetFeedFallbackOnSnapshotDrift(t *testing.T) {
	// 作者改过用户名：快照查不到，按author_id兜底
	drifted := model.Story{ID: 20, AuthorID: 2, AuthorUsername: "old_bob", Title: "renamed myself", Content: "short one", CreatedAt: time.Now()}
	stories := &stubFeedStories{fallback: []model.Story{drifted}, total: 1}
	follows := &stubFeedFollows{briefs: []model.UserBrief{{ID: 2, Username: "bob", Name: "Bob Lee"}}}
	svc := newTestFeedService(follows, stories, &stubFeedLikes{})

	page, err := svc.GetFeed(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Stories, 1)
	require.Equal(t, uint64(20), page.Stories[0].ID)
	// 漂移的快照在关注集合里查不到，标注如实反映
	require.False(t, page.Stories[0].IsFollowing)
	require.Equal(t, []uint64{2}, stories.gotIDs)
}

func TestGetFeedKeysPreferUsernameFallbackToName(t *testing.T) {
	stories := &stubFeedStories{primary: []model.Story{{ID: 1, AuthorUsername: "bob"}}, total: 1}
	follows := &stubFeedFollows{briefs: []model.UserBrief{
		{ID: 2, Username: "Bob"},
		{ID: 3, Name: "Carol Chen"},
	}}
	svc := newTestFeedService(follows, stories, &stubFeedLikes{})

	_, err := svc.GetFeed(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "carol chen"}, stories.gotKeys)
}

func TestGetFeedPagination(t *testing.T) {
	rows := make([]model.Story, 20)
	for i := range rows {
		rows[i] = model.Story{ID: uint64(i + 1), AuthorUsername: "bob"}
	}
	stories := &stubFeedStories{primary: rows, total: 45}
	follows := &stubFeedFollows{briefs: []model.UserBrief{{ID: 2, Username: "bob"}}}
	svc := newTestFeedService(follows, stories, &stubFeedLikes{})

	page, err := svc.GetFeed(context.Background(), 1, 2, 20)
	require.NoError(t, err)
	require.Equal(t, 2, page.Pagination.CurrentPage)
	require.Equal(t, 3, page.Pagination.TotalPages)
	require.Equal(t, int64(45), page.Pagination.TotalStories)
	require.True(t, page.Pagination.HasNext)
	require.True(t, page.Pagination.HasPrev)

	// limit越界时回到默认值
	page, err = svc.GetFeed(context.Background(), 1, 1, 500)
	require.NoError(t, err)
	require.Equal(t, 3, page.Pagination.TotalPages)
	require.False(t, page.Pagination.HasPrev)
}

func TestExcerptShortContentUntouched(t *testing.T) {
	require.Equal(t, "short", Excerpt("short"))
	require.Equal(t, 1, ReadTime(0, ""))
}
