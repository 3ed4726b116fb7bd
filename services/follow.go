package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
)

// FollowService manages follow edges between users.
type FollowService struct {
	db *gorm.DB
}

// NewFollowService creates a FollowService.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// IsFollowing reports whether the edge (actor, target) exists. Anonymous actors follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, actor, target *models.User) (bool, error) {
	if actor == nil || target == nil {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", actor.ID, target.ID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return n > 0, nil
}

// Follow creates the edge (actor, target). Following yourself or an author already followed
// is a silent no-op. The insert ignores unique-index conflicts, so concurrent duplicate
// requests are no-ops as well.
func (s *FollowService) Follow(ctx context.Context, actor, target *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	following, err := s.IsFollowing(ctx, actor, target)
	if err != nil {
		return err
	}
	if !CanFollow(actor, target, following) {
		return nil
	}
	edge := models.Follow{UserID: actor.ID, AuthorID: target.ID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&edge).Error
	if err != nil {
		return fmt.Errorf("create follow: %w", err)
	}
	return nil
}

// Unfollow deletes the edge (actor, target). It returns ErrNotFound when there is none.
func (s *FollowService) Unfollow(ctx context.Context, actor, target *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if target == nil {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", actor.ID, target.ID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return fmt.Errorf("delete follow: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("follow %s -> %s: %w", actor.Username, target.Username, ErrNotFound)
	}
	return nil
}

// Counts returns how many users follow user and how many authors user follows.
func (s *FollowService) Counts(ctx context.Context, user *models.User) (followers, following int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&models.Follow{}).Where("author_id = ?", user.ID).Count(&followers).Error; err != nil {
		return 0, 0, fmt.Errorf("count followers: %w", err)
	}
	if err = db.Model(&models.Follow{}).Where("user_id = ?", user.ID).Count(&following).Error; err != nil {
		return 0, 0, fmt.Errorf("count following: %w", err)
	}
	return followers, following, nil
}
