package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-blog-api/models"
	"community-blog-api/schema"
)

func newSQLiteRepo(t *testing.T) (*PostRepo, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	db, d, err := schema.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, schema.NewMigrator(db, d, schema.Posts, nil).EnsureSchema(ctx))
	return NewPostRepo(db, d, nil), db
}

func strPtr(s string) *string { return &s }

func samplePost(title, typ string) models.NewPost {
	return models.NewPost{
		Title:      title,
		Content:    "body of " + title,
		Type:       typ,
		Categories: []string{"Events", "Local"},
		Tags:       []string{"fun"},
		Author:     "Ann",
	}
}

// runStoreContract checks the behaviour every PostStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) PostStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		p, err := s.Create(ctx, samplePost("first", "News"))
		require.NoError(t, err)
		assert.Positive(t, p.ID)
		assert.Equal(t, []string{"Events", "Local"}, p.Categories)
		assert.Equal(t, 0, p.Likes)
		assert.NotNil(t, p.Comments)
		assert.NotEmpty(t, p.CreatedAt)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		_, err = s.Get(ctx, p.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list filters by type", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, samplePost("a", "News"))
		require.NoError(t, err)
		_, err = s.Create(ctx, samplePost("b", "Blog"))
		require.NoError(t, err)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		news, err := s.List(ctx, "News")
		require.NoError(t, err)
		require.Len(t, news, 1)
		assert.Equal(t, "a", news[0].Title)

		none, err := s.List(ctx, "Gallery")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("update keeps id and reports replaced image", func(t *testing.T) {
		s := newStore(t)
		np := samplePost("a", "News")
		np.Image = strPtr("/uploads/old.png")
		p, err := s.Create(ctx, np)
		require.NoError(t, err)

		u := models.PostUpdate{Title: "a2", Content: "c2", Type: "Blog", Categories: []string{"x"}, Author: "Bo"}
		got, replaced, err := s.Update(ctx, p.ID, u)
		require.NoError(t, err)
		assert.Nil(t, replaced)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "/uploads/old.png", *got.Image)
		assert.Equal(t, "a2", got.Title)
		assert.Equal(t, []string{}, got.Tags)
		assert.Equal(t, p.CreatedAt, got.CreatedAt)

		u.Image = strPtr("/uploads/new.png")
		got, replaced, err = s.Update(ctx, p.ID, u)
		require.NoError(t, err)
		require.NotNil(t, replaced)
		assert.Equal(t, "/uploads/old.png", *replaced)
		assert.Equal(t, "/uploads/new.png", *got.Image)

		_, _, err = s.Update(ctx, p.ID+100, u)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		np := samplePost("a", "News")
		np.Image = strPtr("/uploads/a.png")
		p, err := s.Create(ctx, np)
		require.NoError(t, err)

		gone, err := s.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "/uploads/a.png", *gone.Image)

		_, err = s.Get(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Delete(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("like and unlike floor at zero", func(t *testing.T) {
		s := newStore(t)
		p, err := s.Create(ctx, samplePost("a", "News"))
		require.NoError(t, err)

		n, err := s.Unlike(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = s.Like(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = s.Like(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = s.Unlike(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = s.Like(ctx, p.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent likes all count", func(t *testing.T) {
		s := newStore(t)
		p, err := s.Create(ctx, samplePost("a", "News"))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Like(ctx, p.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, got.Likes)
	})

	t.Run("comments append in order", func(t *testing.T) {
		s := newStore(t)
		p, err := s.Create(ctx, samplePost("a", "News"))
		require.NoError(t, err)

		first := models.Comment{Content: "one", Author: "x", CreatedAt: "2024-01-01T00:00:00.000Z"}
		second := models.Comment{Content: "two", Author: "y", CreatedAt: "2024-01-02T00:00:00.000Z"}
		_, err = s.AddComment(ctx, p.ID, first)
		require.NoError(t, err)
		comments, err := s.AddComment(ctx, p.ID, second)
		require.NoError(t, err)
		assert.Equal(t, []models.Comment{first, second}, comments)

		got, err := s.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, comments, got.Comments)

		_, err = s.AddComment(ctx, p.ID+100, first)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostRepoContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) PostStore {
		repo, _ := newSQLiteRepo(t)
		return repo
	})
}

func TestMemoryPostRepoContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) PostStore {
		return NewMemoryPostRepo()
	})
}

func TestPostRepoDecodesLegacyColumns(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	ctx := context.Background()
	_, err := db.Exec(`INSERT INTO posts (title, content, categories, tags, comments) VALUES ('t', 'c', 'blog', '["a",', 'oops')`)
	require.NoError(t, err)

	posts, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"blog"}, posts[0].Categories)
	assert.Equal(t, []string{`["a",`}, posts[0].Tags)
	assert.Equal(t, []models.Comment{}, posts[0].Comments)

	comments, err := repo.AddComment(ctx, posts[0].ID, models.Comment{Content: "hi", Author: "a"})
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestPostRepoPostgresLikeQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET likes = CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END WHERE id = $1 RETURNING likes`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"likes"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET likes = COALESCE(likes, 0) + 1 WHERE id = $1 RETURNING likes`)).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"likes"}))

	repo := NewPostRepo(db, schema.Postgres{}, nil)
	n, err := repo.Unlike(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = repo.Like(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryPostRepoSeed(t *testing.T) {
	r := NewMemoryPostRepo()
	ctx := context.Background()
	n, err := r.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(models.BaselinePosts()), n)

	n, err = r.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	posts, err := r.List(ctx, "News")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Community Festival Announced", posts[0].Title)
}

func TestMemoryPostRepoConcurrentSeed(t *testing.T) {
	r := NewMemoryPostRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	added := make([]int, 10)
	for i := range added {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := r.Seed(ctx)
			assert.NoError(t, err)
			added[i] = n
		}()
	}
	wg.Wait()

	total := 0
	for _, n := range added {
		total += n
	}
	assert.Equal(t, len(models.BaselinePosts()), total)
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(models.BaselinePosts()), n)
}

func TestPostRepoDefaultsNullColumns(t *testing.T) {
	ctx := context.Background()
	db, d, err := schema.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Every column present but none constrained, as a hand-made table would be.
	_, err = db.Exec(`CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT, content TEXT,
		image TEXT, type TEXT, categories TEXT, tags TEXT, created_at TEXT, author TEXT, likes INTEGER, comments TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO posts (title, content) VALUES ('t', 'c')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO posts (title, content, type, author) VALUES (NULL, NULL, '  ', '')`)
	require.NoError(t, err)
	require.NoError(t, schema.NewMigrator(db, d, schema.Posts, nil).EnsureSchema(ctx))

	repo := NewPostRepo(db, d, nil)
	posts, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, models.DefaultType, p.Type)
		assert.Equal(t, models.DefaultAuthor, p.Author)
		assert.Equal(t, 0, p.Likes)
		assert.Equal(t, []string{}, p.Categories)
		assert.Equal(t, []string{}, p.Tags)
		assert.Equal(t, []models.Comment{}, p.Comments)
		assert.Nil(t, p.Image)
	}
	assert.Equal(t, "t", posts[0].Title)
	assert.Equal(t, "", posts[1].Title)
	assert.Equal(t, "", posts[1].CreatedAt)

	got, err := repo.Get(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, posts[0], *got)

	likes, err := repo.Like(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	comments, err := repo.AddComment(ctx, posts[1].ID, models.Comment{Content: "hi", Author: "a"})
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}
