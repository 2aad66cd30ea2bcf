package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/addrsync/internal/config"
	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/node"
	"github.com/mrz1836/addrsync/internal/seedstore"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// fakeNode is an in-memory ledger node speaking the JSON command protocol.
type fakeNode struct {
	mu         sync.Mutex
	balances   map[string]int64
	spent      map[string]bool
	hashes     map[string][]string
	broadcasts [][]string
	calls      map[string]int
	server     *httptest.Server
}

type fakeNodeRequest struct {
	Command   string   `json:"command"`
	Addresses []string `json:"addresses"`
	Txs       []string `json:"txs"`
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	n := &fakeNode{
		balances: map[string]int64{},
		spent:    map[string]bool{},
		hashes:   map[string][]string{},
		calls:    map[string]int{},
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	t.Cleanup(n.server.Close)
	return n
}

func (n *fakeNode) handle(w http.ResponseWriter, r *http.Request) {
	var req fakeNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[req.Command]++

	var resp any
	switch req.Command {
	case metrics.CommandSpentStatus:
		states := make([]bool, len(req.Addresses))
		for i, a := range req.Addresses {
			states[i] = n.spent[a]
		}
		resp = map[string]any{"states": states}
	case metrics.CommandBalances:
		balances := make([]string, len(req.Addresses))
		for i, a := range req.Addresses {
			balances[i] = strconv.FormatInt(n.balances[a], 10)
		}
		resp = map[string]any{"balances": balances}
	case metrics.CommandFindTxs:
		hashes := []string{}
		for _, a := range req.Addresses {
			hashes = append(hashes, n.hashes[a]...)
		}
		resp = map[string]any{"hashes": hashes}
	case metrics.CommandNodeInfo:
		resp = node.NodeInfo{
			AppVersion:            "1.0.7",
			CurrentRoundIndex:     420,
			LatestSolidRoundHash:  "abc",
			LatestSolidRoundIndex: 419,
		}
	case metrics.CommandBroadcastTxs:
		n.broadcasts = append(n.broadcasts, req.Txs)
		resp = map[string]any{}
	default:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown command"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) setBalance(addr string, v int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[addr] = v
}

func (n *fakeNode) setSpent(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spent[addr] = true
}

func (n *fakeNode) setHashes(addr string, hashes ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hashes[addr] = hashes
}

func (n *fakeNode) broadcastCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.broadcasts)
}

// testAddresses derives the first count addresses of testMnemonic.
func testAddresses(t *testing.T, count int) []string {
	t.Helper()
	k, err := seedstore.NewKeychain(seedstore.Options{Mnemonic: testMnemonic})
	require.NoError(t, err)
	addrs, err := k.GenerateAddress(context.Background(), 0, count)
	require.NoError(t, err)
	return addrs
}

// setupHome writes a config for fast tests into a fresh home directory and
// points the environment at n.
func setupHome(t *testing.T, n *fakeNode) string {
	t.Helper()
	home := t.TempDir()

	c := config.Defaults()
	c.Home = home
	c.Node.RateLimit = 1000
	c.Node.RateBurst = 100
	c.Node.RetryAttempts = 1
	c.Sync.BatchSize = 5
	c.Logging.Level = "off"
	c.Logging.File = ""
	require.NoError(t, config.Save(c, config.Path(home)))

	t.Setenv(config.EnvHome, "")
	t.Setenv(config.EnvNodeURL, n.server.URL)
	t.Setenv(config.EnvMnemonic, testMnemonic)
	t.Setenv(config.EnvPassphrase, "")
	t.Setenv(config.EnvStorageBackend, "")
	t.Setenv(config.EnvOutputFormat, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvVerbose, "")
	t.Setenv(config.EnvBatchSize, "")
	return home
}

// resetFlags restores every flag in the tree to its default so runs of
// the shared root command do not leak into each other.
func resetFlags(root *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	walkCommands(root, func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	})
}

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// runJSON runs a command with JSON output and decodes the result into v.
func runJSON(t *testing.T, home string, v any, args ...string) {
	t.Helper()
	stdout, err := executeCommand(t, append([]string{"--home", home, "-o", "json"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), v), stdout)
}

// withPrompt replaces the mnemonic prompt for the duration of the test.
func withPrompt(t *testing.T, fn func() (string, error)) {
	t.Helper()
	orig := promptMnemonicFn
	t.Cleanup(func() { promptMnemonicFn = orig })
	promptMnemonicFn = fn
}

func storagePath(home string, parts ...string) string {
	return filepath.Join(append([]string{home}, parts...)...)
}
