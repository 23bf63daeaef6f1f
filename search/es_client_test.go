package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-blog-api/models"
)

type recorded struct {
	Method string
	Path   string
	Body   string
}

// fakeES answers every request with status and body and records it.
func fakeES(t *testing.T, status int, body string) (*ES, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{Method: r.Method, Path: r.URL.Path, Body: string(b)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	es, err := New(srv.URL, "posts")
	require.NoError(t, err)
	return es, &reqs
}

func TestIndexPost(t *testing.T) {
	es, reqs := fakeES(t, http.StatusCreated, `{"result":"created"}`)
	p := &models.Post{ID: 7, Title: "t", Content: "c", Type: "News", Tags: []string{"fest"}, Categories: []string{"Events"}}

	require.NoError(t, es.IndexPost(context.Background(), p))
	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/posts/_doc/7", got.Path)

	var doc Doc
	require.NoError(t, json.Unmarshal([]byte(got.Body), &doc))
	assert.Equal(t, DocFor(p), doc)
}

func TestEnsureIndexToleratesExisting(t *testing.T) {
	es, _ := fakeES(t, http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception"},"status":400}`)
	assert.NoError(t, es.EnsureIndex(context.Background()))
}

func TestEnsureIndexReportsOtherErrors(t *testing.T) {
	es, _ := fakeES(t, http.StatusForbidden, `{"error":{"type":"security_exception"},"status":403}`)
	assert.Error(t, es.EnsureIndex(context.Background()))
}

func TestDeleteMissingPost(t *testing.T) {
	es, reqs := fakeES(t, http.StatusNotFound, `{"result":"not_found"}`)
	require.NoError(t, es.DeletePost(context.Background(), 3))
	assert.Equal(t, "/posts/_doc/3", (*reqs)[0].Path)
}

func TestSearchRelatedByTags(t *testing.T) {
	es, reqs := fakeES(t, http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`)

	res, err := es.SearchRelatedByTags(context.Background(), []string{"fest"}, 7, 5)
	require.NoError(t, err)
	assert.Contains(t, res, "hits")

	got := (*reqs)[0]
	assert.Equal(t, "/posts/_search", got.Path)
	assert.Contains(t, got.Body, `"must_not":[{"term":{"_id":"7"}}]`)
	assert.Contains(t, got.Body, `"terms":{"tags":["fest"]}`)
}

func TestSearchMultiMatchError(t *testing.T) {
	es, _ := fakeES(t, http.StatusInternalServerError, `{"error":"boom"}`)
	_, err := es.SearchMultiMatch(context.Background(), "festival")
	assert.Error(t, err)
}
