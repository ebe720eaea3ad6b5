package mysql

import (
	"context"
	"errors"

	"FailTales/internal/model"

	"gorm.io/gorm"
)

type StoryLikeRepository struct {
	DB *gorm.DB
}

// Like 幂等点赞：唯一(user_id, story_id)，首次插入时计数+1
func (r *StoryLikeRepository) Like(ctx context.Context, userID, storyID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sl model.StoryLike
		err := tx.
			Where("user_id = ? AND story_id = ?", userID, storyID).
			First(&sl).Error
		if err == nil {
			// 已存在，幂等
			changed = false
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err = tx.Create(&model.StoryLike{UserID: userID, StoryID: storyID}).Error; err != nil {
			return err
		}
		if err = tx.Model(&model.Story{}).
			Where("id = ?", storyID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).
			Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// Unlike 幂等取消点赞，计数防负
func (r *StoryLikeRepository) Unlike(ctx context.Context, userID, storyID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND story_id = ?", userID, storyID).
			Delete(&model.StoryLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			changed = false
			return nil
		}
		if err := tx.Model(&model.Story{}).
			Where("id = ?", storyID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).
			Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func (r *StoryLikeRepository) IsLiked(ctx context.Context, userID, storyID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.StoryLike{}).
		Where("user_id = ? AND story_id = ?", userID, storyID).
		Count(&count).Error
	return count > 0, err
}

func (r *StoryLikeRepository) GetLikeCount(ctx context.Context, storyID uint64) (int64, error) {
	var s model.Story
	err := r.DB.WithContext(ctx).Select("id", "like_count").First(&s, storyID).Error
	if err != nil {
		return 0, err
	}
	return s.LikeCount, nil
}

// LikedStoryIDs 用户点过赞的story id集合，推荐生成器用
func (r *StoryLikeRepository) LikedStoryIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.StoryLike{}).
		Where("user_id = ?", userID).
		Pluck("story_id", &ids).Error
	return ids, err
}

// LikedSet 批量查询viewer对一组story是否点过赞，feed标注用
func (r *StoryLikeRepository) LikedSet(ctx context.Context, userID uint64, storyIDs []uint64) (map[uint64]bool, error) {
	liked := make(map[uint64]bool, len(storyIDs))
	if len(storyIDs) == 0 {
		return liked, nil
	}
	var ids []uint64
	if err := r.DB.WithContext(ctx).Model(&model.StoryLike{}).
		Where("user_id = ? AND story_id IN ?", userID, storyIDs).
		Pluck("story_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
