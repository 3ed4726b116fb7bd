package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// PostForm is the submitted create/edit form. GroupID and Image are optional.
type PostForm struct {
	Text    string
	GroupID *uint
	Image   *multipart.FileHeader
}

// CommentForm is the submitted comment form.
type CommentForm struct {
	Text string
}

// PostService handles writes to posts and comments.
type PostService struct {
	db    *gorm.DB
	media *MediaStore
}

// NewPostService creates a PostService storing images in media.
func NewPostService(db *gorm.DB, media *MediaStore) *PostService {
	return &PostService{db: db, media: media}
}

// Get loads a post with its author and group.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, notFound(err, "post %d", id)
	}
	return &post, nil
}

// Groups lists every group ordered by title, for the group selector of the post form.
func (s *PostService) Groups(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	if err := s.db.WithContext(ctx).Order("title ASC").Order("id ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// validate checks the form and returns the cleaned text.
func (s *PostService) validate(ctx context.Context, form PostForm) (string, error) {
	verr := &ValidationError{}
	text := strings.TrimSpace(form.Text)
	if text == "" {
		verr.Add("text", msgRequired)
	}
	if form.GroupID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", *form.GroupID).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check group: %w", err)
		}
		if n == 0 {
			verr.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		}
	}
	if form.Image != nil {
		msg, err := s.media.Validate(form.Image)
		if err != nil {
			return "", err
		}
		if msg != "" {
			verr.Add("image", msg)
		}
	}
	return text, verr.errOrNil()
}

// Create stores a new post written by actor. On a *ValidationError nothing is persisted.
func (s *PostService) Create(ctx context.Context, actor *models.User, form PostForm) (*models.Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	text, err := s.validate(ctx, form)
	if err != nil {
		return nil, err
	}

	post := models.Post{Text: text, AuthorID: actor.ID, GroupID: form.GroupID}
	if form.Image != nil {
		if post.Image, err = s.media.Save(form.Image); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&post).Error; err != nil {
		s.media.Remove(post.Image)
		return nil, fmt.Errorf("create post: %w", err)
	}
	utils.Sugar.Infof("post created id=%d author=%s", post.ID, actor.Username)
	return s.Get(ctx, post.ID)
}

// Edit replaces the text, group and (when a new file is given) image of a post. Only the
// author may edit; the author and creation time never change.
func (s *PostService) Edit(ctx context.Context, actor *models.User, postID uint, form PostForm) (*models.Post, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(post, actor) {
		return nil, fmt.Errorf("edit post %d by %s: %w", postID, actor.Username, ErrForbidden)
	}
	text, err := s.validate(ctx, form)
	if err != nil {
		return nil, err
	}

	var groupID interface{}
	if form.GroupID != nil {
		groupID = *form.GroupID
	}
	updates := map[string]interface{}{
		"text":     text,
		"group_id": groupID,
	}
	var saved string
	if form.Image != nil {
		if saved, err = s.media.Save(form.Image); err != nil {
			return nil, err
		}
		updates["image"] = saved
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).Updates(updates).Error; err != nil {
		s.media.Remove(saved)
		return nil, fmt.Errorf("update post %d: %w", postID, err)
	}
	if saved != "" && post.Image != saved {
		s.media.Remove(post.Image)
	}
	return s.Get(ctx, post.ID)
}

// AddComment attaches a comment by actor to the post.
func (s *PostService) AddComment(ctx context.Context, actor *models.User, postID uint, form CommentForm) (*models.Comment, error) {
	if !CanComment(actor) {
		return nil, ErrUnauthenticated
	}
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(form.Text)
	if text == "" {
		verr := &ValidationError{}
		verr.Add("text", msgRequired)
		return nil, verr
	}

	comment := models.Comment{PostID: postID, AuthorID: actor.ID, Text: text}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = actor
	return &comment, nil
}

// Delete removes a post together with its comments and image. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, actor *models.User, postID uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	post, err := s.Get(ctx, postID)
	if err != nil {
		return err
	}
	if !CanEdit(post, actor) {
		return fmt.Errorf("delete post %d by %s: %w", postID, actor.Username, ErrForbidden)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Post{}, post.ID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	s.media.Remove(post.Image)
	return nil
}
