package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"community-blog-api/models"
	"community-blog-api/schema"
)

const postColumns = `id, title, content, image, type, categories, tags, created_at, author, likes, comments`

// PostRepo stores posts in the single posts table.
type PostRepo struct {
	DB      *sql.DB
	Dialect schema.Dialect
	Log     *slog.Logger
}

func NewPostRepo(db *sql.DB, d schema.Dialect, log *slog.Logger) *PostRepo {
	if log == nil {
		log = slog.Default()
	}
	return &PostRepo{DB: db, Dialect: d, Log: log}
}

func (r *PostRepo) ph(n int) string { return r.Dialect.Placeholder(n) }

func (r *PostRepo) List(ctx context.Context, postType string) ([]models.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts`
	var args []any
	if postType != "" {
		q += ` WHERE type = ` + r.ph(1)
		args = append(args, postType)
	}
	q += ` ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Post{}
	for rows.Next() {
		p, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostRepo) Get(ctx context.Context, id int) (*models.Post, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = `+r.ph(1), id)
	p, err := r.scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PostRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

func (r *PostRepo) Create(ctx context.Context, p models.NewPost) (*models.Post, error) {
	q := fmt.Sprintf(`INSERT INTO posts (title, content, image, type, categories, tags, created_at, author, likes, comments)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, 0, '[]') RETURNING id`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8))

	var id int
	err := r.DB.QueryRowContext(ctx, q,
		p.Title, p.Content, p.Image, p.Type,
		models.EncodeList(p.Categories), models.EncodeList(p.Tags), models.Now(), p.Author,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *PostRepo) Update(ctx context.Context, id int, u models.PostUpdate) (*models.Post, *string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var old sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT image FROM posts WHERE id = `+r.ph(1)+r.Dialect.ForUpdate(), id).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	oldImage := nullToPtr(old)
	image := oldImage
	if u.Image != nil {
		image = u.Image
	}

	q := fmt.Sprintf(`UPDATE posts SET title = %s, content = %s, image = %s, type = %s, categories = %s, tags = %s, author = %s WHERE id = %s`,
		r.ph(1), r.ph(2), r.ph(3), r.ph(4), r.ph(5), r.ph(6), r.ph(7), r.ph(8))
	if _, err := tx.ExecContext(ctx, q,
		u.Title, u.Content, image, u.Type,
		models.EncodeList(u.Categories), models.EncodeList(u.Tags), u.Author, id,
	); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, replacedImage(oldImage, u.Image), nil
}

func (r *PostRepo) Delete(ctx context.Context, id int) (*models.Post, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = `+r.ph(1), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *PostRepo) Like(ctx context.Context, id int) (int, error) {
	return r.adjustLikes(ctx, id, `COALESCE(likes, 0) + 1`)
}

func (r *PostRepo) Unlike(ctx context.Context, id int) (int, error) {
	return r.adjustLikes(ctx, id, `CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END`)
}

// adjustLikes applies expr in a single statement so concurrent likes on the
// same post serialize in the engine.
func (r *PostRepo) adjustLikes(ctx context.Context, id int, expr string) (int, error) {
	var likes int
	err := r.DB.QueryRowContext(ctx,
		`UPDATE posts SET likes = `+expr+` WHERE id = `+r.ph(1)+` RETURNING likes`, id,
	).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return likes, err
}

func (r *PostRepo) AddComment(ctx context.Context, id int, c models.Comment) ([]models.Comment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var stored sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT comments FROM posts WHERE id = `+r.ph(1)+r.Dialect.ForUpdate(), id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	raw := stored.String
	if !stored.Valid || strings.TrimSpace(raw) == "" {
		raw = "[]"
	} else if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		r.Log.Warn("resetting malformed comments", "post_id", id)
		raw = "[]"
	}

	item, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	next, err := sjson.SetRaw(raw, "-1", string(item))
	if err != nil {
		return nil, fmt.Errorf("append comment: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE posts SET comments = `+r.ph(1)+` WHERE id = `+r.ph(2), next, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	comments, _ := models.DecodeComments(next)
	return comments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostRepo) scanPost(s scanner) (*models.Post, error) {
	var (
		p                                 models.Post
		title, content, image, typ        sql.NullString
		categories, tags, createdAt, auth sql.NullString
		cmts                              sql.NullString
		likes                             sql.NullInt64
	)
	if err := s.Scan(&p.ID, &title, &content, &image, &typ, &categories, &tags, &createdAt, &auth, &likes, &cmts); err != nil {
		return nil, err
	}
	p.Title = models.DecodeText(title.String, title.Valid, "")
	p.Content = models.DecodeText(content.String, content.Valid, "")
	p.Image = nullToPtr(image)
	p.Type = models.DecodeText(typ.String, typ.Valid, models.DefaultType)
	p.Categories = models.DecodeList(categories.String)
	p.Tags = models.DecodeList(tags.String)
	p.CreatedAt = models.DecodeText(createdAt.String, createdAt.Valid, "")
	p.Author = models.DecodeText(auth.String, auth.Valid, models.DefaultAuthor)
	p.Likes = max(int(likes.Int64), 0)
	comments, ok := models.DecodeComments(cmts.String)
	if !ok {
		r.Log.Warn("malformed comments column", "post_id", p.ID)
	}
	p.Comments = comments
	return &p, nil
}

func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
