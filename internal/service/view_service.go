package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FailTales/internal/repository/mysql"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	viewCooldown    = 5 * time.Second
	maxViewsPerPair = 5
	viewCacheSize   = 1 << 16
	viewCacheTTL    = time.Hour
)

type ViewStoryStore interface {
	IncrementView(ctx context.Context, storyID uint64) error
}

type viewEntry struct {
	lastView time.Time
	count    int
}

// ViewService (viewer,story)维度的浏览限流。
// 状态只在进程内，用带容量和TTL的LRU兜住内存，重启丢了也无所谓——
// 这是限流器不是审计日志
type ViewService struct {
	stories ViewStoryStore

	mu   sync.Mutex
	seen *expirable.LRU[string, *viewEntry]
	now  func() time.Time
}

func NewViewService() *ViewService {
	return &ViewService{
		stories: &mysql.StoryRepository{DB: mysql.DB},
		seen:    expirable.NewLRU[string, *viewEntry](viewCacheSize, nil, viewCacheTTL),
		now:     time.Now,
	}
}

// Track 满足条件才计一次浏览：非作者本人，冷却期(5s)已过，且该对的累计计数<5。
// 返回本次是否计数
func (s *ViewService) Track(ctx context.Context, viewerID, storyID, authorID uint64) (bool, error) {
	if viewerID == 0 || viewerID == authorID {
		return false, nil
	}
	key := fmt.Sprintf("%d:%d", viewerID, storyID)

	s.mu.Lock()
	e, ok := s.seen.Get(key)
	now := s.now()
	if ok && (e.count >= maxViewsPerPair || now.Sub(e.lastView) < viewCooldown) {
		s.mu.Unlock()
		return false, nil
	}
	if !ok {
		e = &viewEntry{}
	}
	e.count++
	e.lastView = now
	s.seen.Add(key, e)
	s.mu.Unlock()

	if err := s.stories.IncrementView(ctx, storyID); err != nil {
		return false, err
	}
	return true, nil
}
