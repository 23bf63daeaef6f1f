package models

import (
	"strings"
	"time"
)

const (
	// DefaultType is assigned to posts that arrive without a type.
	DefaultType = "Blog"
	// DefaultAuthor is used when a post or comment has no author.
	DefaultAuthor = "Jane Doe"
	// TimeLayout is the ISO-8601 form stored in created_at columns.
	TimeLayout = "2006-01-02T15:04:05.000Z"
)

type Comment struct {
	Content   string `json:"content"`
	Author    string `json:"author"`
	CreatedAt string `json:"createdAt"`
}

type Post struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Image      *string   `json:"image"`
	Type       string    `json:"type"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
	CreatedAt  string    `json:"createdAt"`
	Author     string    `json:"author"`
	Likes      int       `json:"likes"`
	Comments   []Comment `json:"comments"`
}

// NewPost carries the fields of a post about to be stored. Storage assigns
// the id, the timestamp and the like count.
type NewPost struct {
	Title      string
	Content    string
	Image      *string
	Type       string
	Categories []string
	Tags       []string
	Author     string
}

// PostUpdate replaces the mutable fields of a post. A nil Image keeps the
// stored reference.
type PostUpdate struct {
	Title      string
	Content    string
	Image      *string
	Type       string
	Categories []string
	Tags       []string
	Author     string
}

// PostForm is bound from the multipart or urlencoded body of create and
// edit requests.
type PostForm struct {
	Title      string `form:"title" json:"title" binding:"required"`
	Content    string `form:"content" json:"content" binding:"required"`
	Type       string `form:"type" json:"type"`
	Categories string `form:"categories" json:"categories"`
	Tags       string `form:"tags" json:"tags"`
	Author     string `form:"author" json:"author"`
}

type CommentReq struct {
	Content string `form:"content" json:"content" binding:"required"`
	Author  string `form:"author" json:"author"`
}

// LikeResp mirrors the body returned by like and unlike.
type LikeResp struct {
	ID    int `json:"id"`
	Likes int `json:"likes"`
}

// Now returns the current UTC time in TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// ToNewPost applies defaults to a bound form.
func (f PostForm) ToNewPost(image *string) NewPost {
	return NewPost{
		Title:      f.Title,
		Content:    f.Content,
		Image:      image,
		Type:       orDefault(f.Type, DefaultType),
		Categories: SplitList(f.Categories),
		Tags:       SplitList(f.Tags),
		Author:     orDefault(f.Author, DefaultAuthor),
	}
}

func (f PostForm) ToUpdate(image *string) PostUpdate {
	p := f.ToNewPost(image)
	return PostUpdate(p)
}

func (r CommentReq) ToComment() Comment {
	return Comment{
		Content:   r.Content,
		Author:    orDefault(r.Author, DefaultAuthor),
		CreatedAt: Now(),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
