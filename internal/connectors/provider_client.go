package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/config"
)

// HTTPProviderClient talks to the external provider's REST API. Every call
// carries the account token and is bounded by the configured timeout so a
// hung provider surfaces as a failed transition, never an ambiguous state.
type HTTPProviderClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewProviderClient(cfg *config.Config) ProviderClient {
	return &HTTPProviderClient{
		baseURL: cfg.ProviderBaseURL,
		token:   cfg.ProviderToken,
		client: &http.Client{
			Timeout: time.Duration(cfg.ProviderTimeout) * time.Second,
		},
	}
}

// catalogEndpoints maps entity kinds to provider list endpoints
var catalogEndpoints = map[common_models.EntityType]string{
	common_models.EntityPipeline: "/api/3/dealGroups",
	common_models.EntityStage:    "/api/3/dealStages",
	common_models.EntityUser:     "/api/3/users",
	common_models.EntityField:    "/api/3/dealCustomFieldMeta",
}

type providerCatalogPayload struct {
	DealGroups []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"dealGroups"`
	DealStages []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Group string `json:"group"`
	} `json:"dealStages"`
	Users []struct {
		ID        string `json:"id"`
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"users"`
	DealCustomFieldMeta []struct {
		ID         string `json:"id"`
		FieldLabel string `json:"fieldLabel"`
		DealGroup  string `json:"dealGroup"`
	} `json:"dealCustomFieldMeta"`
}

func (c *HTTPProviderClient) FetchCatalog(ctx context.Context, entity common_models.EntityType) ([]CatalogItem, error) {
	endpoint, ok := catalogEndpoints[entity]
	if !ok {
		return nil, fmt.Errorf("unsupported catalog entity: %s", entity)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("provider base URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider catalog request returned %d", resp.StatusCode)
	}

	var payload providerCatalogPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode provider catalog: %w", err)
	}

	var items []CatalogItem
	switch entity {
	case common_models.EntityPipeline:
		for _, g := range payload.DealGroups {
			items = append(items, CatalogItem{ExternalID: g.ID, ExternalName: g.Title})
		}
	case common_models.EntityStage:
		for _, s := range payload.DealStages {
			items = append(items, CatalogItem{ExternalID: s.ID, ExternalName: s.Title, ParentExternalID: s.Group})
		}
	case common_models.EntityUser:
		for _, u := range payload.Users {
			name := u.Username
			if u.FirstName != "" {
				name = u.FirstName + " " + u.LastName
			}
			items = append(items, CatalogItem{ExternalID: u.ID, ExternalName: name})
		}
	case common_models.EntityField:
		for _, f := range payload.DealCustomFieldMeta {
			items = append(items, CatalogItem{ExternalID: f.ID, ExternalName: f.FieldLabel, ParentExternalID: f.DealGroup})
		}
	}

	return items, nil
}

func (c *HTTPProviderClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*ProviderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, err
	}

	return &ProviderResponse{StatusCode: resp.StatusCode, Body: string(respBody)}, nil
}
