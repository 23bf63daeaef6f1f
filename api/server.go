package api

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"community-blog-api/models"
	"community-blog-api/repository"
)

// PostCache is the cache-aside layer in front of single-post reads.
type PostCache interface {
	GetPost(ctx context.Context, id int) (*models.Post, error)
	SetPost(ctx context.Context, p *models.Post) error
	InvalidatePost(ctx context.Context, id int) error
}

// PostIndex keeps the full-text index in step with the store.
type PostIndex interface {
	IndexPost(ctx context.Context, p *models.Post) error
	DeletePost(ctx context.Context, id int) error
	SearchMultiMatch(ctx context.Context, q string) (map[string]any, error)
	SearchRelatedByTags(ctx context.Context, tags []string, excludeID int, size int) (map[string]any, error)
}

type ImageStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(ref *string)
}

// Server holds the collaborators of the HTTP handlers. Cache and Index may
// be nil.
type Server struct {
	Posts     repository.PostStore
	Cache     PostCache
	Index     PostIndex
	Images    ImageStore
	UploadDir string
	Log       *slog.Logger
}

func (s *Server) Router() *gin.Engine {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now()})
	})
	r.GET("/db/health", s.dbHealth)

	if s.UploadDir != "" {
		r.Static("/uploads", s.UploadDir)
	}

	posts := r.Group("/api/posts")
	posts.GET("", s.listPosts)
	posts.POST("", s.createPost)
	posts.GET("/search", s.searchPosts)
	posts.GET("/:id", s.getPost)
	posts.PUT("/:id", s.updatePost)
	posts.DELETE("/:id", s.deletePost)
	posts.GET("/:id/related", s.relatedPosts)
	posts.POST("/:id/like", s.likePost)
	posts.POST("/:id/unlike", s.unlikePost)
	posts.POST("/:id/comment", s.commentPost)

	r.NoRoute(func(c *gin.Context) {
		s.Log.Info("no route", "path", c.Request.URL.Path)
		c.String(http.StatusNotFound, "Cannot %s %s", c.Request.Method, c.Request.URL.Path)
	})
	return r
}

func (s *Server) dbHealth(c *gin.Context) {
	n, err := s.Posts.Count(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"db_ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"db_ok": true, "posts_count": n})
}
