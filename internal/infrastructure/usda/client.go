// Package usda queries the USDA FoodData Central search API for energy density.
package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.nal.usda.gov/fdc/v1"

var (
	// ErrNoMatch means the search returned no foods.
	ErrNoMatch = errors.New("usda: no matching food")
	// ErrNoEnergy means the top food carries no positive kcal energy nutrient.
	ErrNoEnergy = errors.New("usda: no energy nutrient in kcal")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("usda: status %d: %s", e.Code, e.Body)
}

type Nutrient struct {
	Name  string  `json:"nutrientName"`
	Unit  string  `json:"unitName"`
	Value float64 `json:"value"`
}

type Food struct {
	FDCID       int64      `json:"fdcId"`
	Description string     `json:"description"`
	Nutrients   []Nutrient `json:"foodNutrients"`
}

// EnergyKcal returns the first nutrient named "Energy" measured in kcal with a positive value.
func (f Food) EnergyKcal() (float64, bool) {
	for _, n := range f.Nutrients {
		if strings.EqualFold(n.Name, "energy") && strings.EqualFold(n.Unit, "kcal") && n.Value > 0 {
			return n.Value, true
		}
	}
	return 0, false
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Search performs one request and returns the top hit. It never retries.
func (c *Client) Search(ctx context.Context, query string) (Food, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("pageSize", "1")
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/foods/search?"+q.Encode(), nil)
	if err != nil {
		return Food{}, fmt.Errorf("usda: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Food{}, fmt.Errorf("usda: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Food{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var body struct {
		Foods []Food `json:"foods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Food{}, fmt.Errorf("usda: decode response: %w", err)
	}
	if len(body.Foods) == 0 {
		return Food{}, ErrNoMatch
	}
	return body.Foods[0], nil
}

// LookupKcal searches name and extracts kcal per 100 g from the top hit.
func (c *Client) LookupKcal(ctx context.Context, name string) (float64, error) {
	food, err := c.Search(ctx, name)
	if err != nil {
		return 0, err
	}
	kcal, ok := food.EnergyKcal()
	if !ok {
		return 0, ErrNoEnergy
	}
	return kcal, nil
}
