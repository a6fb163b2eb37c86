package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"go.uber.org/zap"
)

const domainsByPrefixQuery = `
	query DomainsByPrefix($prefix: String!, $first: Int!) {
		domains(
			first: $first,
			where: { name_starts_with: $prefix },
			orderBy: name,
			orderDirection: asc
		) {
			name
		}
	}
`

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type domainsResponse struct {
	Data struct {
		Domains []struct {
			Name string `json:"name"`
		} `json:"domains"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// SubgraphClient queries the ENS subgraph over GraphQL
type SubgraphClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSubgraphClient creates a new subgraph client with a reusable HTTP client
func NewSubgraphClient(cfg *config.SearchConfig, logger *logger.Logger) *SubgraphClient {
	return &SubgraphClient{
		endpoint: cfg.SubgraphURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.WithComponent("subgraph-client"),
	}
}

// SearchNames returns up to limit names starting with prefix, ordered by name
func (c *SubgraphClient) SearchNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	payload, err := json.Marshal(graphQLRequest{
		Query: domainsByPrefixQuery,
		Variables: map[string]interface{}{
			"prefix": prefix,
			"first":  limit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query subgraph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subgraph returned HTTP %d", resp.StatusCode)
	}

	var parsed domainsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode subgraph response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("subgraph error: %s", parsed.Errors[0].Message)
	}

	names := make([]string, 0, len(parsed.Data.Domains))
	for _, d := range parsed.Data.Domains {
		if d.Name == "" {
			continue
		}
		names = append(names, d.Name)
	}

	c.logger.Debug("Subgraph search completed", zap.String("prefix", prefix), zap.Int("results", len(names)))
	return names, nil
}
