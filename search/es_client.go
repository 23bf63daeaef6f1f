package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"community-blog-api/models"
)

type ES struct {
	Client *es8.Client
	Index  string
}

func New(esURL, index string) (*ES, error) {
	es, err := es8.NewClient(es8.Config{Addresses: []string{esURL}, Transport: &http.Transport{}})
	if err != nil {
		return nil, err
	}
	return &ES{Client: es, Index: index}, nil
}

const mapping = `{
  "mappings": {
    "properties": {
      "title":      {"type":"text"},
      "content":    {"type":"text"},
      "type":       {"type":"keyword"},
      "categories": {"type":"keyword"},
      "tags":       {"type":"keyword"},
      "author":     {"type":"keyword"},
      "createdAt":  {"type":"keyword"}
    }
  }
}`

// EnsureIndex creates the index with its mapping; an existing index is fine.
func (e *ES) EnsureIndex(ctx context.Context) error {
	res, err := e.Client.Indices.Create(e.Index,
		e.Client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.Client.Indices.Create.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return fmt.Errorf("create index %s: %s", e.Index, res.Status())
	}
	return nil
}

// Doc is the indexed projection of a post.
type Doc struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Author     string   `json:"author"`
	CreatedAt  string   `json:"createdAt"`
}

func DocFor(p *models.Post) Doc {
	return Doc{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		Type:       p.Type,
		Categories: p.Categories,
		Tags:       p.Tags,
		Author:     p.Author,
		CreatedAt:  p.CreatedAt,
	}
}

func (e *ES) IndexPost(ctx context.Context, p *models.Post) error {
	b, err := json.Marshal(DocFor(p))
	if err != nil {
		return err
	}
	res, err := e.Client.Index(e.Index, bytes.NewReader(b),
		e.Client.Index.WithDocumentID(strconv.Itoa(p.ID)),
		e.Client.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	return drain(res, "index post")
}

// DeletePost removes a post from the index; a missing document is not an error.
func (e *ES) DeletePost(ctx context.Context, id int) error {
	res, err := e.Client.Delete(e.Index, strconv.Itoa(id), e.Client.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
		return nil
	}
	return drain(res, "delete post")
}

func (e *ES) SearchMultiMatch(ctx context.Context, q string) (map[string]any, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "content", "categories", "tags"},
			},
		},
	}
	return e.search(ctx, body)
}

// SearchRelatedByTags finds posts sharing a tag, excluding the post itself.
func (e *ES) SearchRelatedByTags(ctx context.Context, tags []string, excludeID int, size int) (map[string]any, error) {
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"must_not": []any{
					map[string]any{"term": map[string]any{"_id": strconv.Itoa(excludeID)}},
				},
				"should": []any{
					map[string]any{"terms": map[string]any{"tags": tags}},
				},
				"minimum_should_match": 1,
			},
		},
	}
	return e.search(ctx, body)
}

func (e *ES) search(ctx context.Context, body map[string]any) (map[string]any, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Index),
		e.Client.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", e.Index, res.Status())
	}
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out, nil
}

func drain(res *esapi.Response, op string) error {
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.Status())
	}
	return nil
}
