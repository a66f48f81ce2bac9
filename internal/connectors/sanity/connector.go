// Package sanity reads CMS documents from the Sanity HTTP query API.
package sanity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/portfolio-rag/internal/connectors"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.ContentSource = (*Connector)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2023-05-03"
	DefaultDataset    = "production"
	DefaultTimeout    = 30 * time.Second
)

const (
	listQuery = `*[_type in $types && !(_id in path("drafts.**"))] | order(_id asc)`
	getQuery  = `*[_id == $id][0]`
)

// Config holds configuration for the Sanity connector.
type Config struct {
	// ProjectID is the Sanity project (required unless BaseURL is set).
	ProjectID string

	// Dataset is the dataset name (default: production).
	Dataset string

	// APIVersion is the dated API version (default: 2023-05-03).
	APIVersion string

	// Token is an optional read token for private datasets.
	Token string

	// Types restricts List to these document types.
	Types []domain.SourceType

	// BaseURL overrides https://<project>.api.sanity.io.
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Connector queries a Sanity dataset.
type Connector struct {
	client   *http.Client
	endpoint string
	types    []domain.SourceType
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// New creates a Sanity connector.
func New(cfg Config) (*Connector, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: sanity project ID is required", domain.ErrContentSourceUnavailable)
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.ProjectID + ".api.sanity.io"
	}
	types := cfg.Types
	if len(types) == 0 {
		types = domain.AllSourceTypes()
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), ts)
		client.Timeout = cfg.Timeout
	}

	return &Connector{
		client:   client,
		endpoint: fmt.Sprintf("%s/v%s/data/query/%s", base, cfg.APIVersion, url.PathEscape(cfg.Dataset)),
		types:    types,
	}, nil
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return "sanity"
}

// List returns every published document of the configured types.
func (c *Connector) List(ctx context.Context) ([]domain.SourceDocument, error) {
	types := make([]string, len(c.types))
	for i, t := range c.types {
		types[i] = string(t)
	}

	var raws []map[string]any
	if err := c.query(ctx, listQuery, map[string]any{"types": types}, &raws); err != nil {
		return nil, err
	}

	docs := make([]domain.SourceDocument, 0, len(raws))
	for _, raw := range raws {
		doc, err := connectors.DecodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("sanity: %w", err)
		}
		docs = append(docs, doc)
	}
	return connectors.Filter(docs, c.types), nil
}

// Get returns the published document with the given ID.
func (c *Connector) Get(ctx context.Context, id string) (*domain.SourceDocument, error) {
	if connectors.IsDraft(id) {
		return nil, domain.ErrNotFound
	}

	var raw map[string]any
	if err := c.query(ctx, getQuery, map[string]any{"id": id}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}

	doc, err := connectors.DecodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	return &doc, nil
}

// query runs a GROQ query. Parameters are passed as $name URL arguments
// holding JSON-encoded values.
func (c *Connector) query(ctx context.Context, groq string, params map[string]any, out any) error {
	q := url.Values{}
	q.Set("query", groq)
	for name, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("sanity: encode param %s: %w", name, err)
		}
		q.Set("$"+name, string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("sanity: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sanity: %w", domain.ErrContentSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: sanity: read response: %w", domain.ErrContentSourceUnavailable, err)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return fmt.Errorf("%w: sanity: status %d: %s", domain.ErrContentSourceUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if qr.Error != nil {
			msg = qr.Error.Description
		}
		return fmt.Errorf("%w: sanity: status %d: %s", domain.ErrContentSourceUnavailable, resp.StatusCode, msg)
	}

	if len(qr.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(qr.Result, out); err != nil {
		return fmt.Errorf("sanity: decode result: %w", err)
	}
	return nil
}
