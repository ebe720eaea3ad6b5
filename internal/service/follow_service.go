package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FollowStore 关注边读写
type FollowStore interface {
	Follow(ctx context.Context, followerID, followeeID uint64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error)
	ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error)
	ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error)
}

// TargetResolver 按用户名或展示名找目标用户
type TargetResolver interface {
	ResolveByHandle(ctx context.Context, handle string) (*model.User, error)
}

type FollowService struct {
	repo  FollowStore
	users TargetResolver
}

// ToggleResult 关注开关的结果
type ToggleResult struct {
	Action      string          `json:"action"`
	IsFollowing bool            `json:"isFollowing"`
	User        model.UserBrief `json:"user"`
}

func NewFollowService() *FollowService {
	return &FollowService{
		repo:  &mysql.FollowRepository{DB: mysql.DB},
		users: &mysql.UserRepository{DB: mysql.DB},
	}
}

// Toggle 关注/取关开关。target可以是用户名或展示名，大小写不敏感。
// 自关注做两道检查：按名字的前置检查和解析后的id检查，展示名不唯一所以缺一不可
func (s *FollowService) Toggle(ctx context.Context, actorID uint64, actorUsername, actorName, target string) (*ToggleResult, error) {
	if actorID == 0 {
		return nil, pkg.Unauthorized("login required")
	}
	handle := strings.TrimSpace(target)
	if handle == "" {
		return nil, pkg.InvalidArgument("target required")
	}
	lower := strings.ToLower(handle)
	if lower == strings.ToLower(actorUsername) || (actorName != "" && lower == strings.ToLower(actorName)) {
		return nil, pkg.InvalidArgument("cannot follow yourself")
	}

	targetUser, err := s.users.ResolveByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkg.NotFound("user not found")
		}
		return nil, pkg.Upstream("resolve target", err)
	}
	if targetUser.ID == actorID {
		return nil, pkg.InvalidArgument("cannot follow yourself")
	}

	following, err := s.repo.IsFollowing(ctx, actorID, targetUser.ID)
	if err != nil {
		return nil, pkg.Upstream("read edge state", err)
	}

	res := &ToggleResult{
		User: model.UserBrief{ID: targetUser.ID, Username: targetUser.Username, Name: targetUser.Name},
	}
	if following {
		_, err = s.repo.Unfollow(ctx, actorID, targetUser.ID)
		res.Action = "unfollowed"
		res.IsFollowing = false
	} else {
		_, err = s.repo.Follow(ctx, actorID, targetUser.ID)
		res.Action = "followed"
		res.IsFollowing = true
	}
	if err != nil {
		if errors.Is(err, mysql.ErrEdgePartial) {
			// 半边写入：数据一致性告警，运维需人工对账
			logrus.WithFields(logrus.Fields{
				"actor":  actorID,
				"target": targetUser.ID,
				"action": res.Action,
			}).WithError(err).Error("follow edge partially applied")
			return nil, pkg.EdgeInconsistent("follow edge update incomplete", err)
		}
		return nil, pkg.Upstream("apply edge toggle", err)
	}
	return res, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, pkg.InvalidArgument("invalid user id")
	}
	return s.repo.IsFollowing(ctx, followerID, followeeID)
}

func (s *FollowService) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return s.repo.ListFollowings(ctx, userID, cursor, limit)
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return s.repo.ListFollowers(ctx, userID, cursor, limit)
}

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer 定时把关注事件从outbox表投递到Kafka
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: mysql.DB},
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		logrus.WithError(err).Warn("outbox query failed")
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// LogSender 默认 sender：只打日志，kafka不可用时兜底
func LogSender(ctx context.Context, ob *model.SocialOutbox) error {
	logrus.WithFields(logrus.Fields{
		"type":     ob.EventType,
		"follower": ob.Follower,
		"followee": ob.Followee,
	}).Info("outbox send")
	return nil
}

// FollowCountReconciler 周期对账：用follow表的真实边数修正users表的冗余计数。
// 并发toggle留下的计数漂移靠它收敛
type FollowCountReconciler struct {
	repo      *mysql.FollowCountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewFollowCountReconciler() *FollowCountReconciler {
	return &FollowCountReconciler{
		repo:      &mysql.FollowCountReconcilerRepo{DB: mysql.DB},
		batchSize: 500,
		interval:  5 * time.Minute,
	}
}

// Run 对账定时任务启动器
func (r *FollowCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	var lastID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			lastID = r.reconcileOnce(ctx, lastID)
		}
	}
}

// 对账一个批次，返回下一批的游标；扫完一轮后从头开始
func (r *FollowCountReconciler) reconcileOnce(ctx context.Context, lastID uint64) uint64 {
	users, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
	if err != nil {
		logrus.WithError(err).Warn("reconcile list failed")
		return lastID
	}
	if len(users) == 0 {
		return 0
	}

	for _, u := range users {
		realFollowing, err := r.repo.RealFollowings(ctx, u.ID)
		if err != nil {
			continue
		}
		realFollower, err := r.repo.RealFollowers(ctx, u.ID)
		if err != nil {
			continue
		}
		if realFollowing != u.FollowingCount {
			logrus.WithFields(logrus.Fields{"user": u.ID, "stored": u.FollowingCount, "real": realFollowing}).
				Warn("following count drift")
			_ = r.repo.ReconcileFollowings(ctx, u.ID, realFollowing)
		}
		if realFollower != u.FollowerCount {
			logrus.WithFields(logrus.Fields{"user": u.ID, "stored": u.FollowerCount, "real": realFollower}).
				Warn("follower count drift")
			_ = r.repo.ReconcileFollowers(ctx, u.ID, realFollower)
		}
	}
	return next
}
