package mysql

import (
	"context"

	"FailTales/internal/model"

	"gorm.io/gorm"
)

type SuggestRepository struct {
	DB *gorm.DB
}

// GraphCandidates 二度关系展开：两条顺序的集合查询代替图遍历。
// 第一跳是viewer的关注集合（调用方已查好），第二跳取这些人关注的人，
// 再对候选做一次分组计数得到与viewer关注集合的交集大小
func (r *SuggestRepository) GraphCandidates(ctx context.Context, followingIDs, exclude []uint64) ([]model.GraphCandidate, error) {
	if len(followingIDs) == 0 {
		return nil, nil
	}
	var candidateIDs []uint64
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Distinct("followee_id").
		Where("follower_id IN ? AND status=1", followingIDs).
		Where("followee_id NOT IN ?", exclude).
		Pluck("followee_id", &candidateIDs).Error; err != nil {
		return nil, err
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	// mutual(c) = |following(viewer) ∩ following(c)|
	var mutuals []model.GraphCandidate
	if err := r.DB.WithContext(ctx).Model(&model.Follow{}).
		Select("follower_id AS user_id", "COUNT(*) AS mutual").
		Where("follower_id IN ? AND followee_id IN ? AND status=1", candidateIDs, followingIDs).
		Group("follower_id").
		Find(&mutuals).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]int64, len(mutuals))
	for _, m := range mutuals {
		byID[m.UserID] = m.Mutual
	}

	out := make([]model.GraphCandidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		out = append(out, model.GraphCandidate{UserID: id, Mutual: byID[id]})
	}
	return out, nil
}

// InterestCandidates 兴趣重合：取viewer点赞过的story的分类/标签，
// 找点赞过同类story的其他用户，按重合story数分组计数
func (r *SuggestRepository) InterestCandidates(ctx context.Context, likedIDs, exclude []uint64) ([]model.LikeOverlap, error) {
	if len(likedIDs) == 0 {
		return nil, nil
	}
	var categories []string
	if err := r.DB.WithContext(ctx).Model(&model.Story{}).
		Distinct("category").
		Where("id IN ? AND category <> ''", likedIDs).
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	var tags []string
	if err := r.DB.WithContext(ctx).Model(&model.StoryTag{}).
		Distinct("tag").
		Where("story_id IN ?", likedIDs).
		Pluck("tag", &tags).Error; err != nil {
		return nil, err
	}
	if len(categories) == 0 && len(tags) == 0 {
		return nil, nil
	}

	var similarIDs []uint64
	q := r.DB.WithContext(ctx).Model(&model.Story{}).
		Distinct("stories.id").
		Joins("LEFT JOIN story_tags ON story_tags.story_id = stories.id").
		Where("stories.status = ?", model.StoryStatusPublished)
	switch {
	case len(categories) > 0 && len(tags) > 0:
		q = q.Where("stories.category IN ? OR story_tags.tag IN ?", categories, tags)
	case len(categories) > 0:
		q = q.Where("stories.category IN ?", categories)
	default:
		q = q.Where("story_tags.tag IN ?", tags)
	}
	if err := q.Pluck("stories.id", &similarIDs).Error; err != nil {
		return nil, err
	}
	if len(similarIDs) == 0 {
		return nil, nil
	}

	var rows []model.LikeOverlap
	err := r.DB.WithContext(ctx).Model(&model.StoryLike{}).
		Select("user_id", "COUNT(DISTINCT story_id) AS count").
		Where("story_id IN ? AND user_id NOT IN ?", similarIDs, exclude).
		Group("user_id").
		Find(&rows).Error
	return rows, err
}

// CollabCandidates 协同过滤：点赞过完全相同story的用户，按共同点赞数分组计数
func (r *SuggestRepository) CollabCandidates(ctx context.Context, likedIDs, exclude []uint64) ([]model.LikeOverlap, error) {
	if len(likedIDs) == 0 {
		return nil, nil
	}
	var rows []model.LikeOverlap
	err := r.DB.WithContext(ctx).Model(&model.StoryLike{}).
		Select("user_id", "COUNT(*) AS count").
		Where("story_id IN ? AND user_id NOT IN ?", likedIDs, exclude).
		Group("user_id").
		Find(&rows).Error
	return rows, err
}
