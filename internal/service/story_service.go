package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"
	"FailTales/internal/repository/redis"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type StoryService struct {
	repo      *mysql.StoryRepository
	likeRepo  *mysql.StoryLikeRepository
	follows   *mysql.FollowRepository
	likeCache *redis.LikeCacheRepository
	lock      *redis.DistLock
	views     *ViewService
}

func NewStoryService(views *ViewService) *StoryService {
	return &StoryService{
		repo:      &mysql.StoryRepository{DB: mysql.DB},
		likeRepo:  &mysql.StoryLikeRepository{DB: mysql.DB},
		follows:   &mysql.FollowRepository{DB: mysql.DB},
		likeCache: redis.NewLikeCacheRepository(),
		lock:      &redis.DistLock{RDB: redis.Client},
		views:     views,
	}
}

// StoryDetail 详情页返回，带viewer视角标注
type StoryDetail struct {
	Story       *model.Story `json:"story"`
	Tags        []string     `json:"tags"`
	Excerpt     string       `json:"excerpt"`
	ReadTime    int          `json:"readTime"`
	IsLiked     bool         `json:"isLiked"`
	IsFollowing bool         `json:"isFollowing"`
}

// Create 建稿。authorUsername是发布时刻的快照，后续改名不回写
func (s *StoryService) Create(ctx context.Context, authorID uint64, authorUsername, title, content, category string, tags []string, publish bool) (*model.Story, error) {
	if title == "" {
		return nil, pkg.InvalidArgument("title required")
	}
	status := model.StoryStatusDraft
	if publish {
		status = model.StoryStatusPublished
	}
	story := &model.Story{
		AuthorID:       authorID,
		AuthorUsername: authorUsername,
		Title:          title,
		Content:        content,
		Category:       category,
		Status:         status,
	}
	if err := s.repo.Create(ctx, story, tags); err != nil {
		return nil, pkg.Upstream("create story", err)
	}
	return story, nil
}

// Publish 草稿转发布
func (s *StoryService) Publish(ctx context.Context, storyID, authorID uint64) error {
	affected, err := s.repo.Publish(ctx, storyID, authorID)
	if err != nil {
		return pkg.Upstream("publish story", err)
	}
	if affected == 0 {
		return pkg.NotFound("draft not found")
	}
	return nil
}

// Get 详情读取，顺带限流计浏览
func (s *StoryService) Get(ctx context.Context, viewerID, storyID uint64) (*StoryDetail, error) {
	story, err := s.repo.FindByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkg.NotFound("story not found")
		}
		return nil, pkg.Upstream("load story", err)
	}

	counted, err := s.views.Track(ctx, viewerID, storyID, story.AuthorID)
	if err != nil {
		// 浏览数非关键路径，失败只记日志
		logrus.WithError(err).WithField("story", storyID).Warn("view increment failed")
	}
	if counted {
		story.ViewCount++
	}

	tags, err := s.repo.TagsOf(ctx, storyID)
	if err != nil {
		return nil, pkg.Upstream("load tags", err)
	}

	liked, err := s.IsLiked(ctx, viewerID, storyID)
	if err != nil {
		return nil, pkg.Upstream("load liked state", err)
	}
	following := false
	if viewerID != 0 && viewerID != story.AuthorID {
		if following, err = s.follows.IsFollowing(ctx, viewerID, story.AuthorID); err != nil {
			return nil, pkg.Upstream("load follow state", err)
		}
	}

	return &StoryDetail{
		Story:       story,
		Tags:        tags,
		Excerpt:     Excerpt(story.Content),
		ReadTime:    ReadTime(story.ReadTime, story.Content),
		IsLiked:     liked,
		IsFollowing: following,
	}, nil
}

func (s *StoryService) ListByAuthor(ctx context.Context, authorID uint64, page, size int) ([]model.Story, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return s.repo.ListByAuthor(ctx, authorID, (page-1)*size, size)
}

// Archive 幂等归档：成功/已归档均返回 nil；仅无权限时报错
func (s *StoryService) Archive(ctx context.Context, operatorID, storyID uint64) error {
	affected, err := s.repo.ArchiveWithPermission(ctx, storyID, operatorID)
	if err != nil {
		return pkg.Upstream("archive story", err)
	}
	if affected == 0 {
		// 已归档或不存在视为幂等成功，还能读到则是无权限
		if _, err := s.repo.FindByID(ctx, storyID); err != nil {
			return nil
		}
		return pkg.InvalidArgument("no permission")
	}
	return nil
}

// Like 写库成功后优先尝试加锁强更新缓存；拿不到锁则删计数Key，交给读侧回填
func (s *StoryService) Like(ctx context.Context, userID, storyID uint64) (bool, error) {
	if userID == 0 || storyID == 0 {
		return false, pkg.InvalidArgument("invalid id")
	}

	changed, err := s.likeRepo.Like(ctx, userID, storyID)
	if err != nil || !changed {
		if err == nil {
			s.likeCache.WarmIsLiked(ctx, userID, storyID, true)
		}
		return changed, err
	}

	// 集合可直接更新（不强制），失败忽略
	_ = s.likeCache.AddLike(ctx, userID, storyID)

	token := fmt.Sprintf("%d-%d-%d", userID, storyID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, storyID, token)
	if got {
		defer func() { _ = s.lock.Release(ctx, storyID, token) }()
		cnt, err := s.likeRepo.GetLikeCount(ctx, storyID)
		if err != nil {
			_ = s.likeCache.DeleteCount(ctx, storyID)
			return true, nil
		}
		_ = s.likeCache.SetLikeCount(ctx, storyID, cnt)
	} else {
		// 拿不到锁，删计数Key避免脏计数
		_ = s.likeCache.DeleteCount(ctx, storyID)
	}
	return true, nil
}

// Unlike 同样策略：先写库，缓存集合更新后计数删Key重建
func (s *StoryService) Unlike(ctx context.Context, userID, storyID uint64) (bool, error) {
	if userID == 0 || storyID == 0 {
		return false, pkg.InvalidArgument("invalid id")
	}
	changed, err := s.likeRepo.Unlike(ctx, userID, storyID)
	if err != nil || !changed {
		if err == nil {
			s.likeCache.WarmIsLiked(ctx, userID, storyID, false)
		}
		return changed, err
	}

	_ = s.likeCache.RemoveLike(ctx, userID, storyID)

	token := fmt.Sprintf("%d-%d-%d", userID, storyID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, storyID, token)
	if got {
		defer func() { _ = s.lock.Release(ctx, storyID, token) }()
	} else {
		_ = s.likeCache.DeleteCount(ctx, storyID)
	}
	return true, nil
}

func (s *StoryService) IsLiked(ctx context.Context, userID, storyID uint64) (bool, error) {
	if userID == 0 || storyID == 0 {
		return false, nil
	}
	// 先查缓存集合（命中才用）
	if b, ok, err := s.likeCache.IsLikedCached(ctx, userID, storyID); err == nil && ok {
		return b, nil
	}
	// 回源 MySQL
	b, err := s.likeRepo.IsLiked(ctx, userID, storyID)
	if err == nil {
		s.likeCache.WarmIsLiked(ctx, userID, storyID, b)
	}
	return b, err
}

// GetCountWithLock 点赞计数读取：缓存miss时加锁回源，防缓存击穿
func (s *StoryService) GetCountWithLock(ctx context.Context, userID, storyID uint64) (int64, error) {
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, storyID); err == nil && ok {
		return v, nil
	}
	token := fmt.Sprintf("%d-%d-%d", userID, storyID, time.Now().UnixNano())
	got, _ := s.lock.Acquire(ctx, storyID, token)

	if got {
		defer func() { _ = s.lock.Release(ctx, storyID, token) }()

		// 拿锁后二次检查
		if v, ok, err := s.likeCache.GetLikeCountCached(ctx, storyID); err == nil && ok {
			return v, nil
		}

		v, err := s.likeRepo.GetLikeCount(ctx, storyID)
		if err != nil {
			return 0, err
		}
		_ = s.likeCache.SetLikeCount(ctx, storyID, v)
		return v, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存，避免全体打DB
	time.Sleep(50 * time.Millisecond)
	if v, ok, err := s.likeCache.GetLikeCountCached(ctx, storyID); err == nil && ok {
		return v, nil
	}

	return s.likeRepo.GetLikeCount(ctx, storyID)
}
