package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"community-blog-api/models"
	"community-blog-api/repository"
	"community-blog-api/uploads"
)

const relatedSize = 5

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.Posts.List(c, c.Query("type"))
	if err != nil {
		s.storageError(c, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// getPost serves from the cache when it can and fills it on a miss.
func (s *Server) getPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if s.Cache != nil {
		if p, err := s.Cache.GetPost(c, id); err == nil {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, p)
			return
		}
	}

	p, err := s.Posts.Get(c, id)
	if err != nil {
		s.storageError(c, "get post", err)
		return
	}
	if s.Cache != nil {
		if err := s.Cache.SetPost(c, p); err != nil {
			s.Log.Warn("cache post", "post_id", id, "error", err)
		}
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createPost(c *gin.Context) {
	var form models.PostForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, ok := s.saveImage(c)
	if !ok {
		return
	}

	p, err := s.Posts.Create(c, form.ToNewPost(image))
	if err != nil {
		s.Images.Remove(image)
		s.storageError(c, "create post", err)
		return
	}
	s.index(c, p)
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updatePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var form models.PostForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	image, ok := s.saveImage(c)
	if !ok {
		return
	}

	p, replaced, err := s.Posts.Update(c, id, form.ToUpdate(image))
	if err != nil {
		s.Images.Remove(image)
		s.storageError(c, "update post", err)
		return
	}
	s.Images.Remove(replaced)
	s.invalidate(c, id)
	s.index(c, p)
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	p, err := s.Posts.Delete(c, id)
	if err != nil {
		s.storageError(c, "delete post", err)
		return
	}
	s.Images.Remove(p.Image)
	s.invalidate(c, id)
	if s.Index != nil {
		if err := s.Index.DeletePost(c, id); err != nil {
			s.Log.Warn("unindex post", "post_id", id, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (s *Server) likePost(c *gin.Context) {
	s.adjustLikes(c, s.Posts.Like)
}

func (s *Server) unlikePost(c *gin.Context) {
	s.adjustLikes(c, s.Posts.Unlike)
}

func (s *Server) adjustLikes(c *gin.Context, op func(context.Context, int) (int, error)) {
	id, ok := postID(c)
	if !ok {
		return
	}
	likes, err := op(c, id)
	if err != nil {
		s.storageError(c, "update likes", err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, models.LikeResp{ID: id, Likes: likes})
}

func (s *Server) commentPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var req models.CommentReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comments, err := s.Posts.AddComment(c, id, req.ToComment())
	if err != nil {
		s.storageError(c, "add comment", err)
		return
	}
	s.invalidate(c, id)
	c.JSON(http.StatusOK, gin.H{"id": id, "comments": comments})
}

func (s *Server) searchPosts(c *gin.Context) {
	if s.Index == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
		return
	}
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	res, err := s.Index.SearchMultiMatch(c, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) relatedPosts(c *gin.Context) {
	if s.Index == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}
	p, err := s.Posts.Get(c, id)
	if err != nil {
		s.storageError(c, "get post", err)
		return
	}
	res, err := s.Index.SearchRelatedByTags(c, p.Tags, p.ID, relatedSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// saveImage stores the optional "image" file. ok is false when a response
// has already been written.
func (s *Server) saveImage(c *gin.Context) (ref *string, ok bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, true
	}
	name, err := s.Images.Save(fh)
	switch {
	case errors.Is(err, uploads.ErrNotImage), errors.Is(err, uploads.ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	case err != nil:
		s.Log.Error("save upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image. Please try again."})
		return nil, false
	}
	return &name, true
}

func (s *Server) index(c *gin.Context, p *models.Post) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexPost(c, p); err != nil {
		s.Log.Warn("index post", "post_id", p.ID, "error", err)
	}
}

func (s *Server) invalidate(c *gin.Context, id int) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidatePost(c, id); err != nil {
		s.Log.Warn("invalidate cached post", "post_id", id, "error", err)
	}
}

func (s *Server) storageError(c *gin.Context, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	s.Log.Error(op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func postID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
