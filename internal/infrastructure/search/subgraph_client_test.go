package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *SubgraphClient {
	return NewSubgraphClient(&config.SearchConfig{SubgraphURL: url, Timeout: 5 * time.Second}, logger.NewNop())
}

func TestSearchNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vit", req.Variables["prefix"])
		assert.Equal(t, float64(10), req.Variables["first"])
		assert.Contains(t, req.Query, "name_starts_with")

		w.Write([]byte(`{"data":{"domains":[{"name":"vitalik.eth"},{"name":""},{"name":"vitamin.eth"}]}}`))
	}))
	defer server.Close()

	names, err := newTestClient(server.URL).SearchNames(context.Background(), "vit", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"vitalik.eth", "vitamin.eth"}, names)
}

func TestSearchNames_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"indexing error"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchNames(context.Background(), "vit", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing error")
}

func TestSearchNames_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchNames(context.Background(), "vit", 10)
	assert.Error(t, err)
}
