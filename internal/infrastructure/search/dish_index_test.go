package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
)

// fakeES answers the handful of endpoints the index uses. The product header is required
// by the v8 client.
type fakeES struct {
	mu   sync.Mutex
	docs map[string]string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/dishes/_doc/"):
		b, _ := io.ReadAll(r.Body)
		f.docs[strings.TrimPrefix(r.URL.Path, "/dishes/_doc/")] = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		var hits []string
		for _, d := range f.docs {
			hits = append(hits, `{"_source":`+d+`}`)
		}
		_, _ = w.Write([]byte(`{"hits":{"hits":[` + strings.Join(hits, ",") + `]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newIndex(t *testing.T) (*DishIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewDishIndex(es, "dishes"), fake
}

func TestIndexAndSearch(t *testing.T) {
	idx, fake := newIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, &entity.CalorieEntry{Name: "Apple pie", KcalPer100g: 237, Source: entity.SourceUSDA}))

	var stored Dish
	require.NoError(t, json.Unmarshal([]byte(fake.docs["Apple pie"]), &stored))
	assert.Equal(t, 237.0, stored.KcalPer100g)
	assert.Equal(t, "usda", stored.Source)

	hits, err := idx.Search(ctx, "aple pie", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Apple pie", hits[0].Name)
}
