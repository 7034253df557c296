package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/xraph/contenthub"
	audithook "github.com/xraph/contenthub/audit_hook"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/config"
	custodymem "github.com/xraph/contenthub/custody/memory"
	"github.com/xraph/contenthub/indexer"
	idxmem "github.com/xraph/contenthub/indexer/memory"
	"github.com/xraph/contenthub/observability"
	"github.com/xraph/contenthub/store"
	storeleveldb "github.com/xraph/contenthub/store/leveldb"
	storemem "github.com/xraph/contenthub/store/memory"
	storesqlite "github.com/xraph/contenthub/store/sqlite"
	"github.com/xraph/contenthub/types"
)

// app is a ledger assembled from a config file. The caller must defer
// app.Close().
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	ledger  *contenthub.Ledger
	book    *custodymem.Book
	metrics *observability.PrometheusFactory
	index   indexer.Index
}

// newApp reads the config at path, or uses the defaults when path is empty,
// and starts a ledger on the configured store.
func newApp(ctx context.Context, path string) (*app, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.ReadFromFile(path); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	logger := cfg.Logger(os.Stderr)

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if a.book, err = newBook(cfg.Custody); err != nil {
		_ = st.Close()
		return nil, err
	}

	opts := []contenthub.Option{
		contenthub.WithLogger(logger),
		contenthub.WithCustodian(a.book),
		contenthub.WithSessionTTL(cfg.SessionTTL.Duration),
		contenthub.WithPlugin(audithook.New(logRecorder(logger), audithook.WithLogger(logger))),
	}
	if cfg.PermissiveUploads {
		opts = append(opts, contenthub.WithPermissiveUploads())
	}
	if cfg.PermissiveOwnership {
		opts = append(opts, contenthub.WithPermissiveOwnership())
	}
	if cfg.Metrics.Enabled {
		a.metrics = observability.NewPrometheusFactory()
		opts = append(opts, contenthub.WithPlugin(observability.NewMetricsExtension(a.metrics)))
	}
	if cfg.Index.Enabled {
		a.index = idxmem.New()
		opts = append(opts, contenthub.WithPlugin(indexer.NewPlugin(a.index,
			indexer.WithLogger(logger),
			indexer.WithBatch(cfg.Index.BatchSize, cfg.Index.FlushInterval.Duration),
		)))
	}

	a.ledger = contenthub.New(st, opts...)
	if err := a.ledger.Start(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("starting ledger: %w", err)
	}
	return a, nil
}

func (a *app) Close() error {
	return a.ledger.Stop()
}

// bootstrap initializes the platform from the [platform] section on first
// start. An already initialized platform is left untouched.
func (a *app) bootstrap(ctx context.Context) error {
	if a.cfg.Platform == nil {
		return nil
	}
	_, err := a.ledger.GetPlatform(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, contenthub.ErrPlatformNotInitialized) {
		return err
	}
	if a.cfg.Platform.Owner.IsZero() {
		return errors.New("platform.owner is required to initialize the platform")
	}
	ctx = caller.WithAddress(ctx, a.cfg.Platform.Owner)
	_, err = a.ledger.InitializePlatform(ctx, *a.cfg.Platform)
	return err
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "sqlite":
		return storesqlite.Open(cfg.Path)
	case "leveldb":
		return storeleveldb.Open(cfg.Path)
	default:
		return storemem.New(), nil
	}
}

func newBook(cfg config.CustodyConfig) (*custodymem.Book, error) {
	var opts []custodymem.Option
	if !cfg.Metered {
		opts = append(opts, custodymem.Unmetered())
	}
	book := custodymem.New(opts...)
	for addr, amount := range cfg.Deposits {
		a, ok := types.ParseAddress(addr)
		if !ok {
			return nil, fmt.Errorf("custody.deposits: invalid address %q", addr)
		}
		if err := book.Deposit(a, amount); err != nil {
			return nil, fmt.Errorf("custody.deposits[%s]: %w", addr, err)
		}
	}
	return book, nil
}

// logRecorder writes audit events to the daemon log.
func logRecorder(logger *slog.Logger) audithook.RecorderFunc {
	return func(ctx context.Context, ev *audithook.AuditEvent) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("action", ev.Action),
			slog.String("resource", ev.Resource),
			slog.String("resource_id", ev.ResourceID),
			slog.String("actor", ev.Actor),
			slog.String("outcome", ev.Outcome),
			slog.String("severity", ev.Severity),
			slog.Any("metadata", ev.Metadata),
		)
		return nil
	}
}
