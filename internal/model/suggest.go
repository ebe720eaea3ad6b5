package model

// 推荐候选的中间行，只在一次请求内存活，不落库

// GraphCandidate 二度关系候选
type GraphCandidate struct {
	UserID uint64
	Mutual int64 // 与viewer关注集合的交集大小
}

// LikeOverlap 按点赞重合统计的候选
type LikeOverlap struct {
	UserID uint64
	Count  int64
}

// SuggestedUser 推荐接口返回项
type SuggestedUser struct {
	UserID   uint64   `json:"userId"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Score    int64    `json:"score"`
	Reasons  []string `json:"reasons"`
}
