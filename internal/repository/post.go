package repository

import (
	"context"
	"errors"

	"scribe/internal/cache"
	"scribe/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		q := r.db.WithContext(ctx).
			Preload("User").
			Preload("Comments", func(db *gorm.DB) *gorm.DB {
				return db.Order("comments.created_at ASC, comments.id ASC")
			}).
			Preload("Comments.User")
		if err := q.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		post.CommentsCount = len(post.Comments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// cachedPostPage is the redis representation of the first listing page.
type cachedPostPage struct {
	Posts []models.Post `json:"posts"`
	Total int64         `json:"total"`
}

// List serves the first page through the cache; deeper pages always hit the
// database. Post and comment mutations invalidate the cached page.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, int64, error) {
	if offset != 0 {
		return r.list(ctx, nil, limit, offset)
	}

	var page cachedPostPage
	err := cache.Aside(ctx, cache.PostsPageKey(1), &page, cache.ListTTL, func() error {
		posts, total, err := r.list(ctx, nil, limit, offset)
		if err != nil {
			return err
		}
		page.Posts = posts
		page.Total = total
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Posts, page.Total, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	return r.list(ctx, &userID, limit, offset)
}

func (r *postRepository) list(ctx context.Context, userID *uint, limit, offset int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64

	count := r.db.WithContext(ctx).Model(&models.Post{})
	if userID != nil {
		count = count.Where("posts.user_id = ?", *userID)
	}
	if err := count.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL) AS comments_count").
		Preload("User").
		Order("posts.created_at DESC, posts.id ASC").
		Limit(limit).
		Offset(offset)
	if userID != nil {
		q = q.Where("posts.user_id = ?", *userID)
	}

	if err := q.Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidatePostsList(ctx)
	return nil
}

// Delete removes a post and its comments in a single transaction so a
// failure partway through never leaves orphaned rows behind.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidatePostsList(ctx)
	return nil
}
