package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/account"
	"github.com/mrz1836/addrsync/internal/config"
	"github.com/mrz1836/addrsync/internal/ledger"
	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/node"
	"github.com/mrz1836/addrsync/internal/output"
	"github.com/mrz1836/addrsync/internal/storage"
)

type cmdContextKey struct{}

// Remote is the node capability the commands need.
type Remote interface {
	ledger.Remote
	QueryNodeInfo(ctx context.Context) (*node.NodeInfo, error)
}

// RemoteFactory builds the node capability from configuration.
type RemoteFactory func(cfg *config.Config, log *config.Logger, m *metrics.Metrics) Remote

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics
	Remote  RemoteFactory
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, log *config.Logger, formatter *output.Formatter) *CommandContext {
	if log == nil {
		log = config.NullLogger()
	}
	return &CommandContext{
		Cfg:     cfg,
		Log:     log,
		Fmt:     formatter,
		Metrics: metrics.Global,
		Remote:  NewRemote,
	}
}

// WithRemote sets the node factory.
func (c *CommandContext) WithRemote(f RemoteFactory) *CommandContext {
	c.Remote = f
	return c
}

// WithMetrics sets the metrics sink.
func (c *CommandContext) WithMetrics(m *metrics.Metrics) *CommandContext {
	c.Metrics = m
	return c
}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext attached to cmd, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// NewRemote builds a batching node client from the node settings.
func NewRemote(cfg *config.Config, log *config.Logger, m *metrics.Metrics) Remote {
	nodeLog := log.With("node")
	client := node.NewClient(cfg.Node.URL, &node.ClientOptions{
		APIVersion: cfg.Node.APIVersion,
		Timeout:    cfg.Node.Timeout,
		RateLimit:  cfg.Node.RateLimit,
		RateBurst:  cfg.Node.RateBurst,
		Retry: &node.RetryConfig{
			MaxAttempts: cfg.Node.RetryAttempts,
			BaseDelay:   node.DefaultRetryConfig().BaseDelay,
			MaxDelay:    node.DefaultRetryConfig().MaxDelay,
		},
		Metrics: m,
		Logger:  nodeLog,
	})
	return node.NewBatcher(client, &node.BatcherOptions{
		MaxBatchSize:  cfg.Node.MaxBatchSize,
		MaxConcurrent: cfg.Node.MaxConcurrent,
		Logger:        nodeLog,
	})
}

// workspace is the wiring of one command run: node, engine, storage and
// the account manager over them.
type workspace struct {
	remote  Remote
	engine  *ledger.Engine
	store   storage.Store
	manager *account.Manager
}

func (c *CommandContext) openWorkspace() (*workspace, error) {
	store, err := storage.New(c.Cfg.Storage.Backend, c.Cfg.StorageDir())
	if err != nil {
		return nil, err
	}

	remote := c.Remote(c.Cfg, c.Log, c.Metrics)
	engine := ledger.NewEngine(remote, &ledger.Options{
		BatchSize: c.Cfg.Sync.BatchSize,
		Security:  c.Cfg.Sync.Security,
		Logger:    c.Log.With("ledger"),
	})
	manager := account.NewManager(&account.Config{
		Engine:  engine,
		Store:   store,
		Metrics: c.Metrics,
		Logger:  c.Log.With("account"),
	})

	return &workspace{remote: remote, engine: engine, store: store, manager: manager}, nil
}

func (w *workspace) Close() error {
	return w.store.Close()
}
