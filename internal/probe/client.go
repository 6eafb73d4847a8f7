package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/okian/vitrine/internal/domain/model"
)

type videoFeed struct {
	Success      bool                    `json:"success"`
	Personalized bool                    `json:"personalized"`
	Videos       []model.ScoredCandidate `json:"videos"`
}

type productFeed struct {
	Success  bool                    `json:"success"`
	Products []model.ScoredCandidate `json:"products"`
}

type client struct {
	http    *http.Client
	baseURL string
	token   string
}

func newClient(cfg Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
	}
}

func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrStatus, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	if err := c.get(ctx, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

func (c *client) videoFeed(ctx context.Context) (videoFeed, error) {
	var f videoFeed
	err := c.get(ctx, "/api/fy", nil, &f)
	return f, err
}

func (c *client) productFeed(ctx context.Context, cityID string) (productFeed, error) {
	var q url.Values
	if cityID != "" {
		q = url.Values{"city_id": {cityID}}
	}
	var f productFeed
	err := c.get(ctx, "/api/smart-feed", q, &f)
	return f, err
}
