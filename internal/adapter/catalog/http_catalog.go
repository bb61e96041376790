package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rl1809/time-sale/internal/port"
)

// HTTPProductCatalog talks to the external product-catalog service. Only
// existence and basic attributes matter here; catalog CRUD lives elsewhere.
type HTTPProductCatalog struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProductCatalog(baseURL string) *HTTPProductCatalog {
	return &HTTPProductCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type productResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func (c *HTTPProductCatalog) GetProduct(ctx context.Context, productID string) (*port.Product, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, port.ErrProductNotFound
	default:
		return nil, fmt.Errorf("catalog returned status %d for product %s", resp.StatusCode, productID)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	return &port.Product{ID: body.ID, Name: body.Name, Price: body.Price}, nil
}
