package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/metrics"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

const (
	statusOK           = "1"
	noTransactionsText = "No transactions found"
	rateLimitText      = "rate limit"
)

// ErrUpstream marks a failure reported by or while reaching the explorer
var ErrUpstream = errors.New("explorer upstream error")

// retryableError marks failures worth another attempt (429, 5xx, rate limit responses)
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type apiTx struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
}

// EtherscanClient fetches account transaction history from an Etherscan-compatible API
type EtherscanClient struct {
	httpClient *http.Client
	config     *config.ExplorerConfig
	logger     *logger.Logger
}

// NewEtherscanClient creates a new explorer client
func NewEtherscanClient(cfg *config.ExplorerConfig, logger *logger.Logger) *EtherscanClient {
	return &EtherscanClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger.WithComponent("etherscan-client"),
	}
}

// FetchTransactions retrieves normal or internal transactions for an address, newest first
func (c *EtherscanClient) FetchTransactions(ctx context.Context, address string, kind entity.TxKind) ([]entity.ExplorerTx, error) {
	action := "txlist"
	if kind == entity.TxKindInternal {
		action = "txlistinternal"
	}

	call := func() ([]entity.ExplorerTx, error) {
		started := time.Now()
		txs, err := c.fetch(ctx, address, action, kind)
		metrics.RecordExplorerRequest(time.Since(started), action, err != nil)
		return txs, err
	}

	txs, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.attempts()),
		retry.Delay(c.config.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var retryable *retryableError
			return errors.As(err, &retryable)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("Retrying explorer request",
				zap.String("action", action),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *EtherscanClient) attempts() uint {
	if c.config.MaxRetryTimes == 0 {
		return 1
	}
	return c.config.MaxRetryTimes
}

func (c *EtherscanClient) fetch(ctx context.Context, address, action string, kind entity.TxKind) ([]entity.ExplorerTx, error) {
	query := url.Values{}
	if c.config.ChainID > 0 {
		query.Set("chainid", strconv.Itoa(c.config.ChainID))
	}
	query.Set("module", "account")
	query.Set("action", action)
	query.Set("address", address)
	query.Set("startblock", "0")
	query.Set("endblock", "99999999")
	query.Set("page", "1")
	query.Set("offset", strconv.Itoa(c.config.PageSize))
	query.Set("sort", "desc")
	if c.config.APIKey != "" {
		query.Set("apikey", c.config.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build explorer request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, action, err)
		}
		return nil, &retryableError{fmt.Errorf("%w: %s: %v", ErrUpstream, action, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{fmt.Errorf("%w: failed to read %s response: %v", ErrUpstream, action, err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &retryableError{fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, action, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, action, resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", ErrUpstream, action, err)
	}

	if parsed.Status != statusOK {
		if strings.HasPrefix(parsed.Message, noTransactionsText) {
			return []entity.ExplorerTx{}, nil
		}
		detail := parsed.Message
		var resultText string
		if json.Unmarshal(parsed.Result, &resultText) == nil && resultText != "" {
			detail = detail + ": " + resultText
		}
		err := fmt.Errorf("%w: %s status %q: %s", ErrUpstream, action, parsed.Status, detail)
		if strings.Contains(strings.ToLower(detail), rateLimitText) {
			return nil, &retryableError{err}
		}
		return nil, err
	}

	var raw []apiTx
	if err := json.Unmarshal(parsed.Result, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s result: %v", ErrUpstream, action, err)
	}

	txs := make([]entity.ExplorerTx, 0, len(raw))
	for _, r := range raw {
		seconds, err := strconv.ParseInt(r.TimeStamp, 10, 64)
		if err != nil {
			c.logger.Debug("Skipping transaction with bad timestamp",
				zap.String("hash", r.Hash),
				zap.String("timestamp", r.TimeStamp))
			continue
		}
		txs = append(txs, entity.ExplorerTx{
			Hash:        r.Hash,
			From:        strings.ToLower(r.From),
			To:          strings.ToLower(r.To),
			Value:       r.Value,
			BlockNumber: r.BlockNumber,
			Timestamp:   time.Unix(seconds, 0).UTC(),
			Kind:        kind,
		})
	}

	return txs, nil
}
