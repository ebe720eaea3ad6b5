package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"

	"gorm.io/gorm"
)

const (
	feedDefaultLimit = 20
	feedMaxLimit     = 50
	excerptLen       = 150
	wordsPerMinute   = 200
)

type FeedFollowStore interface {
	FollowingBriefs(ctx context.Context, userID uint64) ([]model.UserBrief, error)
}

type FeedStoryStore interface {
	ListFeedByUsernames(ctx context.Context, keys []string, offset, limit int) ([]model.Story, error)
	ListFeedByAuthorIDs(ctx context.Context, ids []uint64, offset, limit int) ([]model.Story, error)
	CountFeed(ctx context.Context, keys []string, ids []uint64) (int64, error)
}

type FeedLikeStore interface {
	LikedSet(ctx context.Context, userID uint64, storyIDs []uint64) (map[uint64]bool, error)
}

type FeedViewerStore interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

type FeedService struct {
	follows FeedFollowStore
	stories FeedStoryStore
	likes   FeedLikeStore
	viewers FeedViewerStore
}

type FeedStory struct {
	ID             uint64    `json:"id"`
	AuthorID       uint64    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	Title          string    `json:"title"`
	Excerpt        string    `json:"excerpt"`
	Category       string    `json:"category"`
	Views          int64     `json:"views"`
	Likes          int64     `json:"likes"`
	Comments       int64     `json:"comments"`
	ReadTime       int       `json:"readTime"`
	IsFollowing    bool      `json:"isFollowing"`
	IsLiked        bool      `json:"isLiked"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalStories int64 `json:"totalStories"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type FeedPage struct {
	Stories    []FeedStory `json:"stories"`
	Pagination Pagination  `json:"pagination"`
	Message    string      `json:"message,omitempty"`
}

func NewFeedService() *FeedService {
	return &FeedService{
		follows: &mysql.FollowRepository{DB: mysql.DB},
		stories: &mysql.StoryRepository{DB: mysql.DB},
		likes:   &mysql.StoryLikeRepository{DB: mysql.DB},
		viewers: &mysql.UserRepository{DB: mysql.DB},
	}
}

// GetFeed 按关注集合出个性化feed。
// 主路径按author_username快照查；快照漂移查不到时按author_id兜底，
// 总数用两种谓词的并集，保证分页稳定
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint64, page, limit int) (*FeedPage, error) {
	if viewerID == 0 {
		return nil, pkg.Unauthorized("login required")
	}
	if _, err := s.viewers.FindByID(ctx, viewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkg.NotFound("viewer not found")
		}
		return nil, pkg.Upstream("load viewer", err)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > feedMaxLimit {
		limit = feedDefaultLimit
	}

	followed, err := s.follows.FollowingBriefs(ctx, viewerID)
	if err != nil {
		return nil, pkg.Upstream("load following set", err)
	}
	if len(followed) == 0 {
		// 没关注任何人是正常终态，不是错误
		return &FeedPage{
			Stories:    []FeedStory{},
			Pagination: Pagination{CurrentPage: page},
			Message:    "follow some authors to see their stories here",
		}, nil
	}

	// 查询键优先用username，缺失时退到展示名
	keys := make([]string, 0, len(followed))
	followedKeys := make(map[string]bool, len(followed))
	ids := make([]uint64, 0, len(followed))
	for _, u := range followed {
		k := u.Username
		if k == "" {
			k = u.Name
		}
		k = strings.ToLower(k)
		keys = append(keys, k)
		followedKeys[k] = true
		ids = append(ids, u.ID)
	}

	offset := (page - 1) * limit
	stories, err := s.stories.ListFeedByUsernames(ctx, keys, offset, limit)
	if err != nil {
		return nil, pkg.Upstream("feed primary query", err)
	}
	if len(stories) == 0 {
		// 快照漂移兜底：按作者引用再查一次
		stories, err = s.stories.ListFeedByAuthorIDs(ctx, ids, offset, limit)
		if err != nil {
			return nil, pkg.Upstream("feed fallback query", err)
		}
	}

	total, err := s.stories.CountFeed(ctx, keys, ids)
	if err != nil {
		return nil, pkg.Upstream("feed count", err)
	}

	storyIDs := make([]uint64, 0, len(stories))
	for _, st := range stories {
		storyIDs = append(storyIDs, st.ID)
	}
	liked, err := s.likes.LikedSet(ctx, viewerID, storyIDs)
	if err != nil {
		return nil, pkg.Upstream("load liked set", err)
	}

	out := make([]FeedStory, 0, len(stories))
	for _, st := range stories {
		out = append(out, FeedStory{
			ID:             st.ID,
			AuthorID:       st.AuthorID,
			AuthorUsername: st.AuthorUsername,
			Title:          st.Title,
			Excerpt:        Excerpt(st.Content),
			Category:       st.Category,
			Views:          st.ViewCount,
			Likes:          st.LikeCount,
			Comments:       st.CommentCount,
			ReadTime:       ReadTime(st.ReadTime, st.Content),
			// 不直接写true：按用户名快照反查关注集合，让快照漂移在数据上可见
			IsFollowing: followedKeys[strings.ToLower(st.AuthorUsername)],
			IsLiked:     liked[st.ID],
			CreatedAt:   st.CreatedAt,
		})
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &FeedPage{
		Stories: out,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalStories: total,
			HasNext:      page < totalPages,
			HasPrev:      page > 1,
		},
	}, nil
}

// Excerpt 内容截到150字符加省略号
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) <= excerptLen {
		return content
	}
	return string(r[:excerptLen]) + "..."
}

// ReadTime 优先用存储值，否则按200词/分钟估算，最少1分钟
func ReadTime(stored int, content string) int {
	if stored > 0 {
		return stored
	}
	words := len(strings.Fields(content))
	rt := (words + wordsPerMinute - 1) / wordsPerMinute
	if rt < 1 {
		rt = 1
	}
	return rt
}
