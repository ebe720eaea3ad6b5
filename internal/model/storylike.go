package model

import "time"

type StoryLike struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_user_story"`
	StoryID   uint64 `gorm:"not null;index;uniqueIndex:uk_user_story"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StoryLike) TableName() string {
	return "story_likes"
}
