package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mrz1836/addrsync/internal/metrics"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default per-command request rate.
	DefaultRateLimit = 5

	// DefaultRateBurst allows short bursts above the rate limit.
	DefaultRateBurst = 10

	// apiVersionHeader carries the node API version on every request.
	apiVersionHeader = "X-HELIX-API-Version"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// Breaker trip settings.
var (
	// MaxFailingRequests is the request count before the breaker may trip.
	MaxFailingRequests = 10
	// FailingRatio is the failure ratio that trips the breaker.
	FailingRatio = 0.6
)

// ClientOptions contains optional configuration for the node client.
type ClientOptions struct {
	// APIVersion is sent in the API version header.
	APIVersion string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second per command.
	RateLimit float64

	// RateBurst allows short bursts above the rate limit.
	RateBurst int

	// Retry overrides the retry policy.
	Retry *RetryConfig

	// HTTPClient overrides the HTTP client. Timeout is ignored when set.
	HTTPClient *http.Client

	// Metrics receives per-command call counts. Defaults to metrics.Global.
	Metrics *metrics.Metrics

	// Logger for debug and error output.
	Logger Logger
}

// Client issues JSON commands to a ledger node.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *gobreaker.CircuitBreaker
	retry      RetryConfig
	metrics    *metrics.Metrics
	logger     Logger
}

var _ API = (*Client)(nil)

// NewClient creates a client for the node at baseURL.
func NewClient(baseURL string, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: opts.APIVersion,
		httpClient: opts.HTTPClient,
		retry:      DefaultRetryConfig(),
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}

	if c.apiVersion == "" {
		c.apiVersion = DefaultAPIVersion
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if c.metrics == nil {
		c.metrics = metrics.Global
	}

	rateLimit := opts.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	rateBurst := opts.RateBurst
	if rateBurst <= 0 {
		rateBurst = DefaultRateBurst
	}
	c.limiter = NewRateLimiter(rateLimit, rateBurst)

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "node:" + c.baseURL,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.debug("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return c
}

// URL returns the node base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// WereAddressesSpentFrom returns the remote spend flag of each address.
func (c *Client) WereAddressesSpentFrom(ctx context.Context, addresses []string) ([]bool, error) {
	var resp spentResponse
	req := addressesRequest{Command: metrics.CommandSpentStatus, Addresses: addresses}
	if err := c.call(ctx, req.Command, req, &resp); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// GetBalances returns the balance of each address as a decimal string.
func (c *Client) GetBalances(ctx context.Context, addresses []string) ([]string, error) {
	var resp balancesResponse
	req := balancesRequest{Command: metrics.CommandBalances, Addresses: addresses, Threshold: balanceThreshold}
	if err := c.call(ctx, req.Command, req, &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

// FindTransactions returns the hashes of transactions touching any of the addresses.
func (c *Client) FindTransactions(ctx context.Context, addresses []string) ([]string, error) {
	var resp hashesResponse
	req := addressesRequest{Command: metrics.CommandFindTxs, Addresses: addresses}
	if err := c.call(ctx, req.Command, req, &resp); err != nil {
		return nil, err
	}
	if resp.Hashes == nil {
		resp.Hashes = []string{}
	}
	return resp.Hashes, nil
}

// GetNodeInfo returns the node's consensus progress.
func (c *Client) GetNodeInfo(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	req := commandRequest{Command: metrics.CommandNodeInfo}
	if err := c.call(ctx, req.Command, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// BroadcastTransactions hands signed transaction payloads to the node.
func (c *Client) BroadcastTransactions(ctx context.Context, txs []string) error {
	req := broadcastRequest{Command: metrics.CommandBroadcastTxs, Txs: txs}
	return c.call(ctx, req.Command, req, nil)
}

// call runs one command through the rate limiter, retry policy and circuit breaker.
func (c *Client) call(ctx context.Context, command string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", command, err)
	}

	_, err = RetryWithConfig(ctx, c.retry, func() (struct{}, error) {
		if err := c.limiter.Wait(ctx, command); err != nil {
			return struct{}{}, fmt.Errorf("rate limiter: %w", err)
		}

		start := time.Now()
		res, err := c.breaker.Execute(func() (any, error) {
			// Malformed answers do not count against the breaker.
			if err := c.post(ctx, command, body, out); err != nil {
				if errors.Is(err, syncerr.ErrMalformedResponse) {
					return err, nil
				}
				return nil, err
			}
			return nil, nil
		})
		if err == nil {
			if rerr, ok := res.(error); ok {
				err = rerr
			}
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = syncerr.WithSuggestion(syncerr.WithCause(syncerr.ErrRemoteUnavailable, err),
				"the node is failing repeatedly; wait a moment or configure a different node")
		}

		c.metrics.RecordNodeCall(command, time.Since(start), err)
		if err != nil {
			c.logError("node %s failed: %v", command, err)
			return struct{}{}, err
		}
		c.debug("node %s ok in %s", command, time.Since(start))
		return struct{}{}, nil
	})
	return err
}

// post sends one HTTP request and decodes the answer into out.
func (c *Client) post(ctx context.Context, command string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiVersionHeader, c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return WrapRetryable(syncerr.WithCause(syncerr.ErrRemoteUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.statusError(command, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return syncerr.WithCause(
			syncerr.WithDetails(syncerr.ErrMalformedResponse, map[string]string{"command": command}),
			err,
		)
	}
	return nil
}

func (c *Client) statusError(command string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	details := map[string]string{
		"command": command,
		"status":  strconv.Itoa(resp.StatusCode),
	}
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			details["node_error"] = body.Error
		} else if body.Exception != "" {
			details["node_error"] = body.Exception
		}
	}

	err := syncerr.WithDetails(syncerr.ErrRemoteUnavailable, details)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return WrapRetryable(&retryAfterError{
			after: ParseRetryAfter(resp.Header.Get("Retry-After")),
			err:   err,
		})
	case resp.StatusCode >= http.StatusInternalServerError:
		return WrapRetryable(err)
	default:
		return err
	}
}

// debug logs a debug message if a logger is configured.
func (c *Client) debug(format string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(format, args...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Client) logError(format string, args ...any) {
	if c.logger != nil {
		c.logger.Error(format, args...)
	}
}
