package schema

import "community-blog-api/models"

// Posts is the current shape of the posts table. Earlier deployments kept a
// single category string and a date column; those are read through aliases.
var Posts = Table{
	Name: "posts",
	Columns: []Column{
		{Name: "id", Kind: KindID},
		{Name: "title", NotNull: true, Default: ""},
		{Name: "content", NotNull: true, Default: ""},
		{Name: "image", Role: RoleReference},
		{Name: "type", NotNull: true, Role: RoleClassifier, Default: models.DefaultType, Fallback: models.DefaultType},
		{Name: "categories", NotNull: true, Default: "[]", Backfill: "[]", Aliases: []string{"category"}},
		{Name: "tags", NotNull: true, Default: "[]", Backfill: "[]"},
		{Name: "created_at", NotNull: true, DefaultNow: true, Aliases: []string{"date", "createdAt"}},
		{Name: "author", NotNull: true, Default: models.DefaultAuthor, Backfill: models.DefaultAuthor},
		{Name: "likes", Kind: KindInteger, NotNull: true, Default: 0, Backfill: 0},
		{Name: "comments", NotNull: true, Default: "[]", Backfill: "[]"},
	},
	Seed: SeedPosts,
}

// SeedPosts turns the baseline posts into rows stamped with the current time.
func SeedPosts() []Row {
	now := models.Now()
	var rows []Row
	for _, p := range models.BaselinePosts() {
		rows = append(rows, Row{
			"title":      p.Title,
			"content":    p.Content,
			"image":      p.Image,
			"type":       p.Type,
			"categories": models.EncodeList(p.Categories),
			"tags":       models.EncodeList(p.Tags),
			"created_at": now,
			"author":     p.Author,
			"likes":      0,
			"comments":   models.EncodeComments(nil),
		})
	}
	return rows
}
