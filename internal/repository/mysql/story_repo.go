package mysql

import (
	"context"

	"FailTales/internal/model"

	"gorm.io/gorm"
)

type StoryRepository struct {
	DB *gorm.DB
}

// Create 建稿，tags随事务一起写
func (r *StoryRepository) Create(ctx context.Context, story *model.Story, tags []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(story).Error; err != nil {
			return err
		}
		for _, t := range tags {
			if t == "" {
				continue
			}
			if err := tx.Create(&model.StoryTag{StoryID: story.ID, Tag: t}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *StoryRepository) FindByID(ctx context.Context, id uint64) (*model.Story, error) {
	var story model.Story
	err := r.DB.WithContext(ctx).
		First(&story, "id = ? AND status <> ?", id, model.StoryStatusArchived).Error
	return &story, err
}

// Publish 草稿转发布，仅作者本人
func (r *StoryRepository) Publish(ctx context.Context, storyID, authorID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Story{}).
		Where("id = ? AND author_id = ? AND status = ?", storyID, authorID, model.StoryStatusDraft).
		Update("status", model.StoryStatusPublished)
	return tx.RowsAffected, tx.Error
}

func (r *StoryRepository) ListByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Story, error) {
	var list []model.Story
	err := r.DB.WithContext(ctx).
		Where("author_id = ? AND status = ?", authorID, model.StoryStatusPublished).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListFeedByUsernames feed主路径：按发布时的用户名快照查
func (r *StoryRepository) ListFeedByUsernames(ctx context.Context, keys []string, offset, limit int) ([]model.Story, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var list []model.Story
	err := r.DB.WithContext(ctx).
		Where("LOWER(author_username) IN ? AND status = ?", keys, model.StoryStatusPublished).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListFeedByAuthorIDs feed兜底路径：快照漂移时按作者引用查
func (r *StoryRepository) ListFeedByAuthorIDs(ctx context.Context, ids []uint64, offset, limit int) ([]model.Story, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Story
	err := r.DB.WithContext(ctx).
		Where("author_id IN ? AND status = ?", ids, model.StoryStatusPublished).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// CountFeed 总数用两种谓词的并集，保证无论哪条路径命中，分页总数一致
func (r *StoryRepository) CountFeed(ctx context.Context, keys []string, ids []uint64) (int64, error) {
	if len(keys) == 0 && len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Story{}).
		Where("status = ?", model.StoryStatusPublished).
		Where("LOWER(author_username) IN ? OR author_id IN ?", keys, ids).
		Count(&n).Error
	return n, err
}

// IncrementView 原子自增浏览数
func (r *StoryRepository) IncrementView(ctx context.Context, storyID uint64) error {
	return r.DB.WithContext(ctx).Model(&model.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// ArchiveWithPermission 作者或管理员(role>=1)可归档；幂等（已归档不报错）
func (r *StoryRepository) ArchiveWithPermission(ctx context.Context, storyID, operatorID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Exec(`
		UPDATE stories s
		SET s.status = ?
		WHERE s.id = ? AND s.status <> ?
		  AND (s.author_id = ? OR EXISTS (
		       SELECT 1 FROM users u WHERE u.id = ? AND u.role >= 1
		  ))`,
		model.StoryStatusArchived, storyID, model.StoryStatusArchived, operatorID, operatorID,
	)
	return tx.RowsAffected, tx.Error
}

func (r *StoryRepository) TagsOf(ctx context.Context, storyID uint64) ([]string, error) {
	var tags []string
	err := r.DB.WithContext(ctx).Model(&model.StoryTag{}).
		Where("story_id = ?", storyID).
		Pluck("tag", &tags).Error
	return tags, err
}
