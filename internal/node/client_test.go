package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/output"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

type nodeRequest struct {
	Command   string   `json:"command"`
	Addresses []string `json:"addresses"`
	Threshold int      `json:"threshold"`
	Txs       []string `json:"txs"`
}

// newFakeNode starts a server speaking the JSON command protocol.
func newFakeNode(t *testing.T, handle func(w http.ResponseWriter, req nodeRequest)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.Header.Get(apiVersionHeader))

		var req nodeRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handle(w, req)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func testClient(url string, m *metrics.Metrics) *Client {
	return NewClient(url, &ClientOptions{
		RateLimit: -1,
		Retry:     &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Metrics:   m,
	})
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	client := NewClient("http://localhost:14265/", nil)
	assert.Equal(t, "http://localhost:14265", client.URL())
	assert.Equal(t, DefaultAPIVersion, client.apiVersion)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, metrics.Global, client.metrics)
}

func TestClientCommands(t *testing.T) {
	t.Parallel()
	server := newFakeNode(t, func(w http.ResponseWriter, req nodeRequest) {
		switch req.Command {
		case "wereAddressesSpentFrom":
			states := make([]bool, len(req.Addresses))
			states[0] = true
			writeJSON(t, w, map[string]any{"states": states})
		case "getBalances":
			assert.Equal(t, balanceThreshold, req.Threshold)
			balances := make([]string, len(req.Addresses))
			for i := range balances {
				balances[i] = "7"
			}
			writeJSON(t, w, map[string]any{"balances": balances})
		case "findTransactions":
			writeJSON(t, w, map[string]any{"hashes": []string{"h1", "h2"}})
		case "getNodeInfo":
			writeJSON(t, w, NodeInfo{
				AppVersion:            "1.0.0",
				CurrentRoundIndex:     42,
				LatestSolidRoundHash:  "abc",
				LatestSolidRoundIndex: 41,
			})
		case "broadcastTransactions":
			assert.Equal(t, []string{"tx1"}, req.Txs)
			writeJSON(t, w, map[string]any{})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	m := &metrics.Metrics{}
	client := testClient(server.URL, m)
	ctx := context.Background()

	states, err := client.WereAddressesSpentFrom(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, states)

	balances, err := client.GetBalances(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "7", "7"}, balances)

	hashes, err := client.FindTransactions(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2"}, hashes)

	info, err := client.GetNodeInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.CurrentRoundIndex)
	assert.Equal(t, "abc", info.LatestSolidRoundHash)

	require.NoError(t, client.BroadcastTransactions(ctx, []string{"tx1"}))

	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.NodeCallsTotal)
	assert.Zero(t, snap.NodeErrorsTotal)
	assert.Equal(t, int64(1), snap.CommandCalls[metrics.CommandBalances])
}

func TestClientEmptyHashes(t *testing.T) {
	t.Parallel()
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		writeJSON(t, w, map[string]any{})
	})

	hashes, err := testClient(server.URL, &metrics.Metrics{}).FindTransactions(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.NotNil(t, hashes)
	assert.Empty(t, hashes)
}

func TestClientRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := newFakeNode(t, func(w http.ResponseWriter, req nodeRequest) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, map[string]any{"states": make([]bool, len(req.Addresses))})
	})

	states, err := testClient(server.URL, &metrics.Metrics{}).WereAddressesSpentFrom(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, states)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientRemoteUnavailable(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	m := &metrics.Metrics{}
	_, err := testClient(server.URL, m).GetBalances(context.Background(), []string{"a"})
	require.ErrorIs(t, err, syncerr.ErrRemoteUnavailable)
	assert.Equal(t, syncerr.ExitRemote, syncerr.ExitCode(err))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(3), m.NodeErrorsTotal())
}

func TestClientRemoteUnavailableRendersCode(t *testing.T) {
	t.Parallel()
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := NewClient(server.URL, &ClientOptions{
		RateLimit: -1,
		Retry:     &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Metrics:   &metrics.Metrics{},
	})
	_, err := client.GetBalances(context.Background(), []string{"a"})
	require.Error(t, err)

	detail := output.NewErrorDetail(err)
	assert.Equal(t, "REMOTE_UNAVAILABLE", detail.Code)
	assert.Equal(t, syncerr.ExitRemote, detail.ExitCode)
	assert.NotEmpty(t, detail.Suggestion)
	assert.Equal(t, "503", detail.Details["status"])
	assert.Equal(t, "2", detail.Details["attempts"])
	assert.Equal(t, metrics.CommandBalances, detail.Details["command"])
}

func TestClientBadRequestNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, map[string]string{"error": "Invalid addresses input"})
	})

	_, err := testClient(server.URL, &metrics.Metrics{}).FindTransactions(context.Background(), []string{"zz"})
	require.ErrorIs(t, err, syncerr.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "Invalid addresses input")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientMalformedBody(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		calls.Add(1)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := testClient(server.URL, &metrics.Metrics{}).WereAddressesSpentFrom(context.Background(), []string{"a"})
	require.ErrorIs(t, err, syncerr.ErrMalformedResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientUnreachable(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := testClient(url, &metrics.Metrics{}).GetNodeInfo(context.Background())
	require.ErrorIs(t, err, syncerr.ErrRemoteUnavailable)
}

func TestClientContextCanceled(t *testing.T) {
	t.Parallel()
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		writeJSON(t, w, map[string]any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(server.URL, &metrics.Metrics{}).GetNodeInfo(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClientCircuitBreakerOpens(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	server := newFakeNode(t, func(w http.ResponseWriter, _ nodeRequest) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client := NewClient(server.URL, &ClientOptions{
		RateLimit: -1,
		Retry:     &RetryConfig{MaxAttempts: 1},
		Metrics:   &metrics.Metrics{},
	})

	for i := 0; i <= MaxFailingRequests; i++ {
		_, err := client.GetNodeInfo(context.Background())
		require.ErrorIs(t, err, syncerr.ErrRemoteUnavailable)
	}
	before := calls.Load()

	_, err := client.GetNodeInfo(context.Background())
	require.ErrorIs(t, err, syncerr.ErrRemoteUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker short-circuits requests")
}
