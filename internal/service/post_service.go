// Package service contains business logic sitting between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"strings"

	"scribe/internal/auth"
	"scribe/internal/models"
	"scribe/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	pageSize int
}

type CreatePostInput struct {
	UserID  uint
	Title   string
	Content string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Title   string
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

// PostPage is one page of posts plus the pagination bookkeeping the
// handlers expose to clients.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPosts int64         `json:"total_posts"`
	TotalPages int           `json:"total_pages"`
}

func NewPostService(postRepo repository.PostRepository, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &PostService{postRepo: postRepo, pageSize: pageSize}
}

const (
	maxTitleLen   = 300
	maxContentLen = 50000
)

func validatePostFields(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}
	post := &models.Post{
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
		UserID:  in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, page int) (*PostPage, error) {
	return s.page(ctx, page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.postRepo.List(ctx, limit, offset)
	})
}

func (s *PostService) ListPostsByUser(ctx context.Context, userID uint, page int) (*PostPage, error) {
	return s.page(ctx, page, func(limit, offset int) ([]models.Post, int64, error) {
		return s.postRepo.ListByUser(ctx, userID, limit, offset)
	})
}

func (s *PostService) page(ctx context.Context, page int, fetch func(limit, offset int) ([]models.Post, int64, error)) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * s.pageSize
	posts, total, err := fetch(s.pageSize, offset)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	return &PostPage{
		Posts:      posts,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPosts: total,
		TotalPages: totalPages,
	}, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(in.UserID, post.UserID); err != nil {
		return nil, err
	}
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return err
	}
	if err := auth.Authorize(in.UserID, post.UserID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, in.PostID)
}
