// Package catalog talks to the public product catalog API
// (https://fakestoreapi.com and compatible servers).
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/shopzone/internal/core/domain"
)

const DefaultBaseURL = "https://fakestoreapi.com"

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil httpClient gets a client
// with a 10s overall timeout; per-call deadlines come from the context.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *HTTPClient) GetProduct(ctx context.Context, productID int) (domain.ResolvedProduct, error) {
	var p domain.ResolvedProduct
	body, err := c.get(ctx, "/products/"+strconv.Itoa(productID))
	if err != nil {
		return p, err
	}
	// The catalog answers unknown ids with 200 and an empty body or null.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, fmt.Errorf("%w: %d", domain.ErrProductNotFound, productID)
	}
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return p, fmt.Errorf("decode product %d: %w", productID, err)
	}
	return p, nil
}

func (c *HTTPClient) ListProducts(ctx context.Context) ([]domain.ResolvedProduct, error) {
	body, err := c.get(ctx, "/products")
	if err != nil {
		return nil, err
	}
	var products []domain.ResolvedProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (c *HTTPClient) ListCategories(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/products/categories")
	if err != nil {
		return nil, err
	}
	var categories []string
	if err := json.Unmarshal(body, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, path)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}
