package model

import "time"

type User struct {
	ID             uint64 `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;size:32;not null"`
	Name           string `gorm:"size:64;index"` // 展示名，允许重名
	Password       string `gorm:"size:255;not null"`
	Role           int    `gorm:"default:0"`
	Email          string `gorm:"uniqueIndex;size:64;not null"`
	Bio            string `gorm:"size:255"`
	FollowerCount  int64  `gorm:"not null;default:0"`
	FollowingCount int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserBrief 关注/推荐等接口返回的用户摘要
type UserBrief struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}
