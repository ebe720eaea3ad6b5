package service

import (
	"context"
	"sort"
	"sync"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

const (
	suggestDefaultLimit = 10
	suggestMaxLimit     = 50

	graphBaseScore   = 5
	mutualBoost      = 2
	interestWeight   = 3
	commonLikeWeight = 4

	reasonGraph    = "followed_by_your_network"
	reasonInterest = "similar_interests"
	reasonCollab   = "liked_same_stories"
)

type SuggestStore interface {
	GraphCandidates(ctx context.Context, followingIDs, exclude []uint64) ([]model.GraphCandidate, error)
	InterestCandidates(ctx context.Context, likedIDs, exclude []uint64) ([]model.LikeOverlap, error)
	CollabCandidates(ctx context.Context, likedIDs, exclude []uint64) ([]model.LikeOverlap, error)
}

type SuggestFollowStore interface {
	FollowingIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

type SuggestLikeStore interface {
	LikedStoryIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

type SuggestUserStore interface {
	BriefsByIDs(ctx context.Context, ids []uint64) ([]model.UserBrief, error)
}

type SuggestService struct {
	store   SuggestStore
	follows SuggestFollowStore
	likes   SuggestLikeStore
	users   SuggestUserStore
}

func NewSuggestService() *SuggestService {
	return &SuggestService{
		store:   &mysql.SuggestRepository{DB: mysql.DB},
		follows: &mysql.FollowRepository{DB: mysql.DB},
		likes:   &mysql.StoryLikeRepository{DB: mysql.DB},
		users:   &mysql.UserRepository{DB: mysql.DB},
	}
}

type candidate struct {
	userID  uint64
	score   int64
	reasons []string
}

// SuggestedUsers 三个独立信号源并行跑，合并去重后按分数排序。
// 单个信号源失败只降级为空结果，不影响整个请求；
// 分数并列时保持 图距离→兴趣→协同 的插入顺序
func (s *SuggestService) SuggestedUsers(ctx context.Context, userID uint64, limit int) ([]model.SuggestedUser, error) {
	if userID == 0 {
		return nil, pkg.Unauthorized("login required")
	}
	if limit <= 0 {
		limit = suggestDefaultLimit
	}
	if limit > suggestMaxLimit {
		limit = suggestMaxLimit
	}

	// 排除集合（自己+已关注）是硬约束，取不到就整体失败
	followingIDs, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, pkg.Upstream("load following set", err)
	}
	exclude := append(append([]uint64{}, followingIDs...), userID)

	// 新用户没点过赞，信号源2/3自然为空，不是错误
	likedIDs, err := s.likes.LikedStoryIDs(ctx, userID)
	if err != nil {
		logrus.WithError(err).Warn("liked set unavailable, interest/collab generators degraded")
		likedIDs = nil
	}

	var results [3][]candidate
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		results[0] = s.graphGenerator(ctx, followingIDs, exclude)
	}()
	go func() {
		defer wg.Done()
		results[1] = s.interestGenerator(ctx, likedIDs, exclude)
	}()
	go func() {
		defer wg.Done()
		results[2] = s.collabGenerator(ctx, likedIDs, exclude)
	}()
	wg.Wait()

	merged := mergeCandidates(results[0], results[1], results[2])
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return s.hydrate(ctx, merged)
}

// graphGenerator 二度关系：好友的好友，基础5分，每个共同关注+2
func (s *SuggestService) graphGenerator(ctx context.Context, followingIDs, exclude []uint64) []candidate {
	rows, err := s.store.GraphCandidates(ctx, followingIDs, exclude)
	if err != nil {
		logrus.WithError(err).Warn("graph generator failed")
		return nil
	}
	out := make([]candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, candidate{
			userID:  r.UserID,
			score:   graphBaseScore + mutualBoost*r.Mutual,
			reasons: []string{reasonGraph},
		})
	}
	return out
}

// interestGenerator 兴趣重合：同分类/同标签的story被谁赞过，每个重合story 3分
func (s *SuggestService) interestGenerator(ctx context.Context, likedIDs, exclude []uint64) []candidate {
	if len(likedIDs) == 0 {
		return nil
	}
	rows, err := s.store.InterestCandidates(ctx, likedIDs, exclude)
	if err != nil {
		logrus.WithError(err).Warn("interest generator failed")
		return nil
	}
	out := make([]candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, candidate{
			userID:  r.UserID,
			score:   interestWeight * r.Count,
			reasons: []string{reasonInterest},
		})
	}
	return out
}

// collabGenerator 协同过滤：赞过完全相同story的用户，每个共同点赞4分
func (s *SuggestService) collabGenerator(ctx context.Context, likedIDs, exclude []uint64) []candidate {
	if len(likedIDs) == 0 {
		return nil
	}
	rows, err := s.store.CollabCandidates(ctx, likedIDs, exclude)
	if err != nil {
		logrus.WithError(err).Warn("collab generator failed")
		return nil
	}
	out := make([]candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, candidate{
			userID:  r.UserID,
			score:   commonLikeWeight * r.Count,
			reasons: []string{reasonCollab},
		})
	}
	return out
}

// mergeCandidates 按userID合并：分数求和，reasons拼接，保持首次出现的顺序
func mergeCandidates(lists ...[]candidate) []candidate {
	index := make(map[uint64]int)
	merged := make([]candidate, 0)
	for _, list := range lists {
		for _, c := range list {
			if i, ok := index[c.userID]; ok {
				merged[i].score += c.score
				merged[i].reasons = append(merged[i].reasons, c.reasons...)
				continue
			}
			index[c.userID] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged
}

func (s *SuggestService) hydrate(ctx context.Context, merged []candidate) ([]model.SuggestedUser, error) {
	ids := make([]uint64, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.userID)
	}
	briefs, err := s.users.BriefsByIDs(ctx, ids)
	if err != nil {
		return nil, pkg.Upstream("load suggested users", err)
	}
	byID := make(map[uint64]model.UserBrief, len(briefs))
	for _, b := range briefs {
		byID[b.ID] = b
	}

	out := make([]model.SuggestedUser, 0, len(merged))
	for _, c := range merged {
		b, ok := byID[c.userID]
		if !ok {
			continue
		}
		out = append(out, model.SuggestedUser{
			UserID:   c.userID,
			Username: b.Username,
			Name:     b.Name,
			Score:    c.score,
			Reasons:  c.reasons,
		})
	}
	return out, nil
}
