package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/cache"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const homeCacheKeyPrefix = "feed:home:"

// FeedOptions sets page sizes and the home page cache lifetime.
type FeedOptions struct {
	PostsPerPage        int
	ProfilePostsPerPage int
	HomeTTL             time.Duration
}

// FeedService assembles the paginated post listings shown by every view.
type FeedService struct {
	db    *gorm.DB
	cache cache.Store
	opts  FeedOptions
}

// NewFeedService creates a FeedService. store holds rendered home pages.
func NewFeedService(db *gorm.DB, store cache.Store, opts FeedOptions) *FeedService {
	if opts.PostsPerPage <= 0 {
		opts.PostsPerPage = 10
	}
	if opts.ProfilePostsPerPage <= 0 {
		opts.ProfilePostsPerPage = 5
	}
	if opts.HomeTTL <= 0 {
		opts.HomeTTL = cache.DefaultTTL
	}
	return &FeedService{db: db, cache: store, opts: opts}
}

func loadPosts(q *gorm.DB) *gorm.DB {
	return q.Preload("Author").Preload("Group").Order("posts.created_at DESC").Order("posts.id DESC")
}

func (f *FeedService) posts(ctx context.Context) *gorm.DB {
	return f.db.WithContext(ctx).Model(&models.Post{})
}

// ListAll returns every post, newest first.
func (f *FeedService) ListAll(ctx context.Context, page int) (Page[models.Post], error) {
	return paginate[models.Post](func() *gorm.DB { return f.posts(ctx) }, loadPosts, page, f.opts.PostsPerPage)
}

// ListByGroup returns the posts of the group identified by slug.
func (f *FeedService) ListByGroup(ctx context.Context, slug string, page int) (*models.Group, Page[models.Post], error) {
	var group models.Group
	if err := f.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, Page[models.Post]{}, notFound(err, "group %q", slug)
	}
	p, err := paginate[models.Post](func() *gorm.DB {
		return f.posts(ctx).Where("group_id = ?", group.ID)
	}, loadPosts, page, f.opts.PostsPerPage)
	return &group, p, err
}

// ListByAuthor returns the posts written by username using the profile page size.
func (f *FeedService) ListByAuthor(ctx context.Context, username string, page int) (*models.User, Page[models.Post], error) {
	var author models.User
	if err := f.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		return nil, Page[models.Post]{}, notFound(err, "user %q", username)
	}
	p, err := paginate[models.Post](func() *gorm.DB {
		return f.posts(ctx).Where("author_id = ?", author.ID)
	}, loadPosts, page, f.opts.ProfilePostsPerPage)
	return &author, p, err
}

// ListFollowed returns the posts of every author viewer follows.
func (f *FeedService) ListFollowed(ctx context.Context, viewer *models.User, page int) (Page[models.Post], error) {
	if viewer == nil {
		return Page[models.Post]{}, ErrUnauthenticated
	}
	return paginate[models.Post](func() *gorm.DB {
		followed := f.db.WithContext(ctx).Model(&models.Follow{}).Select("author_id").Where("user_id = ?", viewer.ID)
		return f.posts(ctx).Where("author_id IN (?)", followed)
	}, loadPosts, page, f.opts.PostsPerPage)
}

// ListComments returns the comments of a post, oldest first.
func (f *FeedService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := f.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

// HomePage returns the rendered home feed page, serving it from the cache while the entry
// lives. Writes never invalidate the entry, so the page may be stale for up to HomeTTL.
// Entries are stored under the resolved page number only, so out-of-range requests never
// add slots.
func (f *FeedService) HomePage(ctx context.Context, page int, render func(Page[models.Post]) ([]byte, error)) ([]byte, error) {
	if b, ok := f.cache.Get(ctx, homeCacheKey(page)); ok {
		return b, nil
	}
	p, err := f.ListAll(ctx, page)
	if err != nil {
		return nil, err
	}
	b, err := render(p)
	if err != nil {
		return nil, err
	}
	key := homeCacheKey(p.Number)
	f.cache.Set(ctx, key, b, f.opts.HomeTTL)
	utils.Sugar.Debugf("home feed cached key=%s ttl=%s", key, f.opts.HomeTTL)
	return b, nil
}

func homeCacheKey(page int) string {
	return fmt.Sprintf("%spage=%d", homeCacheKeyPrefix, page)
}

// ClearCache drops every cached home page.
func (f *FeedService) ClearCache(ctx context.Context) {
	f.cache.Clear(ctx)
}

// notFound maps gorm's missing-row error onto ErrNotFound and wraps everything else.
func notFound(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
