package repository

import (
	"context"
	"slices"
	"sync"

	"community-blog-api/models"
)

// MemoryPostRepo keeps posts in a slice owned by the handle. Nothing is
// persisted; it backs local runs and tests.
type MemoryPostRepo struct {
	mu     sync.Mutex
	posts  []models.Post
	nextID int
}

func NewMemoryPostRepo() *MemoryPostRepo {
	return &MemoryPostRepo{nextID: 1}
}

// Seed adds the baseline posts when the repo is empty and returns how many
// were added. The emptiness check and the inserts happen under one lock.
func (r *MemoryPostRepo) Seed(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.posts) > 0 {
		return 0, nil
	}
	baseline := models.BaselinePosts()
	for _, p := range baseline {
		r.createLocked(p)
	}
	return len(baseline), nil
}

func (r *MemoryPostRepo) List(_ context.Context, postType string) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, p := range r.posts {
		if postType == "" || p.Type == postType {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (r *MemoryPostRepo) Get(_ context.Context, id int) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := clonePost(r.posts[i])
	return &p, nil
}

func (r *MemoryPostRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts), nil
}

func (r *MemoryPostRepo) Create(_ context.Context, n models.NewPost) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := clonePost(r.createLocked(n))
	return &out, nil
}

// createLocked appends a post; r.mu must be held.
func (r *MemoryPostRepo) createLocked(n models.NewPost) models.Post {
	p := models.Post{
		ID:         r.nextID,
		Title:      n.Title,
		Content:    n.Content,
		Image:      n.Image,
		Type:       n.Type,
		Categories: nonNil(n.Categories),
		Tags:       nonNil(n.Tags),
		CreatedAt:  models.Now(),
		Author:     n.Author,
		Comments:   []models.Comment{},
	}
	r.nextID++
	r.posts = append(r.posts, p)
	return p
}

func (r *MemoryPostRepo) Update(_ context.Context, id int, u models.PostUpdate) (*models.Post, *string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, nil, ErrNotFound
	}
	p := &r.posts[i]
	replaced := replacedImage(p.Image, u.Image)
	if u.Image != nil {
		p.Image = u.Image
	}
	p.Title = u.Title
	p.Content = u.Content
	p.Type = u.Type
	p.Categories = nonNil(u.Categories)
	p.Tags = nonNil(u.Tags)
	p.Author = u.Author
	out := clonePost(*p)
	return &out, replaced, nil
}

func (r *MemoryPostRepo) Delete(_ context.Context, id int) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := r.posts[i]
	r.posts = slices.Delete(r.posts, i, i+1)
	return &p, nil
}

func (r *MemoryPostRepo) Like(_ context.Context, id int) (int, error) {
	return r.adjustLikes(id, 1)
}

func (r *MemoryPostRepo) Unlike(_ context.Context, id int) (int, error) {
	return r.adjustLikes(id, -1)
}

func (r *MemoryPostRepo) adjustLikes(id, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return 0, ErrNotFound
	}
	r.posts[i].Likes = max(r.posts[i].Likes+delta, 0)
	return r.posts[i].Likes, nil
}

func (r *MemoryPostRepo) AddComment(_ context.Context, id int, c models.Comment) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	r.posts[i].Comments = append(r.posts[i].Comments, c)
	return slices.Clone(r.posts[i].Comments), nil
}

func (r *MemoryPostRepo) index(id int) int {
	return slices.IndexFunc(r.posts, func(p models.Post) bool { return p.ID == id })
}

func clonePost(p models.Post) models.Post {
	p.Categories = slices.Clone(p.Categories)
	p.Tags = slices.Clone(p.Tags)
	p.Comments = slices.Clone(p.Comments)
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
