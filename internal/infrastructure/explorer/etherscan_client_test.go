package explorer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *EtherscanClient {
	cfg := &config.ExplorerConfig{
		BaseURL:       baseURL,
		APIKey:        "key",
		ChainID:       1,
		PageSize:      10000,
		Timeout:       5 * time.Second,
		MaxRetryTimes: 3,
		RetryInterval: time.Millisecond,
	}
	return NewEtherscanClient(cfg, logger.NewNop())
}

func TestFetchTransactions_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlistinternal", q.Get("action"))
		assert.Equal(t, "0xabc", q.Get("address"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "10000", q.Get("offset"))
		assert.Equal(t, "key", q.Get("apikey"))
		assert.Equal(t, "1", q.Get("chainid"))
		w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"hash":"0x1","from":"0xABC","to":"0xDEF","value":"1","blockNumber":"10","timeStamp":"1767225600"},
			{"hash":"0x2","from":"0xabc","to":"0xdef","value":"2","blockNumber":"11","timeStamp":"garbage"}
		]}`))
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindInternal)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0x1", txs[0].Hash)
	assert.Equal(t, "0xabc", txs[0].From)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), txs[0].Timestamp)
	assert.Equal(t, entity.TxKindInternal, txs[0].Kind)
}

func TestFetchTransactions_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindNormal)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFetchTransactions_ErrorStatus(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindNormal)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetchTransactions_RetriesServerErrors(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"1","message":"OK","result":[]}`))
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindNormal)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetchTransactions_GivesUpAfterRetries(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindNormal)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetchTransactions_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchTransactions(context.Background(), "0xabc", entity.TxKindNormal)
	assert.ErrorIs(t, err, ErrUpstream)
}
