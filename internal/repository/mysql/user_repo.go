package mysql

import (
	"context"
	"strings"

	"FailTales/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

// FindByLogin 登录时允许用户名或邮箱
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, err
}

// ResolveByHandle 大小写不敏感匹配 username 或展示名。
// 展示名不唯一，命中多个时取最早注册的一个
func (r *UserRepository) ResolveByHandle(ctx context.Context, handle string) (*model.User, error) {
	var user model.User
	h := strings.ToLower(strings.TrimSpace(handle))
	err := r.DB.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(name) = ?", h, h).
		Order("id ASC").
		First(&user).Error
	return &user, err
}

func (r *UserRepository) BriefsByIDs(ctx context.Context, ids []uint64) ([]model.UserBrief, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var briefs []model.UserBrief
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "username", "name").
		Where("id IN ?", ids).
		Find(&briefs).Error
	return briefs, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}
