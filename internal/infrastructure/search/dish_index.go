// Package search keeps calorie entries searchable in Elasticsearch.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/kcal-diary-bot/internal/domain/entity"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

const dishMapping = `{
  "mappings": {
    "properties": {
      "name":          {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "kcal_per_100g": {"type": "float"},
      "source":        {"type": "keyword"},
      "created_at":    {"type": "date"}
    }
  }
}`

type Dish struct {
	Name        string    `json:"name"`
	KcalPer100g float64   `json:"kcal_per_100g"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

type DishIndex struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewDishIndex(es *elasticsearch.Client, index string) *DishIndex {
	return &DishIndex{es: es, index: index, timeout: 3 * time.Second}
}

func (d *DishIndex) EnsureIndex(ctx context.Context) error {
	return helpers.EnsureIndex(ctx, d.es, d.index, dishMapping)
}

// Index upserts one entry; the normalized name is the document id.
func (d *DishIndex) Index(ctx context.Context, c *entity.CalorieEntry) error {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	b, err := json.Marshal(Dish{Name: c.Name, KcalPer100g: c.KcalPer100g, Source: string(c.Source), CreatedAt: created})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: d.index, DocumentID: c.Name, Body: strings.NewReader(string(b)), Refresh: "false"}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	res, err := req.Do(ctx, d.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index dish %q: %s", c.Name, res.Status())
	}
	return nil
}

// Search runs a fuzzy match on the dish name.
func (d *DishIndex) Search(ctx context.Context, q string, size int) ([]Dish, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"name": map[string]any{"query": q, "fuzziness": "AUTO"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	res, err := d.es.Search(d.es.Search.WithContext(ctx), d.es.Search.WithIndex(d.index), d.es.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search dishes: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Dish `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]Dish, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
