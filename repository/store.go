package repository

import (
	"context"
	"errors"

	"community-blog-api/models"
)

var ErrNotFound = errors.New("post not found")

// PostStore is the persistence the HTTP layer works against.
type PostStore interface {
	List(ctx context.Context, postType string) ([]models.Post, error)
	Get(ctx context.Context, id int) (*models.Post, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p models.NewPost) (*models.Post, error)
	// Update replaces the mutable fields and returns the image reference the
	// update displaced, if any.
	Update(ctx context.Context, id int, u models.PostUpdate) (*models.Post, *string, error)
	// Delete removes the post and returns it as it was.
	Delete(ctx context.Context, id int) (*models.Post, error)
	Like(ctx context.Context, id int) (int, error)
	// Unlike never takes the count below zero.
	Unlike(ctx context.Context, id int) (int, error)
	AddComment(ctx context.Context, id int, c models.Comment) ([]models.Comment, error)
}

// replacedImage reports the old reference when an update brings a new one.
func replacedImage(old, next *string) *string {
	if next == nil || old == nil || *old == *next {
		return nil
	}
	return old
}
