package model

import "time"

const (
	StoryStatusDraft     = 0
	StoryStatusPublished = 1
	StoryStatusArchived  = 2
)

type Story struct {
	ID       uint64 `gorm:"primaryKey"`
	AuthorID uint64 `gorm:"not null;index:idx_author_time"`
	// AuthorUsername 发布时的用户名快照，作为feed查询主键使用。
	// 作者改名后不回写，读侧用 author_id 兜底
	AuthorUsername string    `gorm:"size:32;not null;index"`
	Title          string    `gorm:"size:200;not null"`
	Content        string    `gorm:"type:text"`
	Category       string    `gorm:"size:32;index"`
	Status         int       `gorm:"not null;default:0;index"` // 0=draft 1=published 2=archived
	ViewCount      int64     `gorm:"not null;default:0"`
	LikeCount      int64     `gorm:"not null;default:0"`
	CommentCount   int64     `gorm:"not null;default:0"`
	ReadTime       int       `gorm:"not null;default:0"` // 分钟，0表示读侧按字数估算
	CreatedAt      time.Time `gorm:"index:idx_author_time,sort:desc"`
	UpdatedAt      time.Time
}

func (Story) TableName() string { return "stories" }

type StoryTag struct {
	ID      uint64 `gorm:"primaryKey"`
	StoryID uint64 `gorm:"not null;index;uniqueIndex:uk_story_tag"`
	Tag     string `gorm:"size:32;not null;index;uniqueIndex:uk_story_tag"`
}

func (StoryTag) TableName() string { return "story_tags" }
