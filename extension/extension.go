// Package extension provides the Forge extension adapter for contenthub.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
// The ledger, its HTTP handler and the optional query index are provided
// to the container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.contenthub" or
// "contenthub" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/api"
	"github.com/xraph/contenthub/indexer"
	idxmongo "github.com/xraph/contenthub/indexer/mongo"
	idxpg "github.com/xraph/contenthub/indexer/postgres"
	idxsqlite "github.com/xraph/contenthub/indexer/sqlite"
	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "contenthub"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Pay-per-view and ownership ledger for creator content"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts contenthub as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *contenthub.Ledger
	handler    *api.Handler
	index      indexer.Index
	store      store.Store
	indexDB    *grove.DB
	ledgerOpts []contenthub.Option
	apiOpts    []api.Option
}

// New creates a new contenthub Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *contenthub.Ledger { return e.engine }

// Handler returns the HTTP handler, or nil when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Index returns the query index, or nil when no index database was given.
func (e *Extension) Index() indexer.Index { return e.index }

// Register implements [forge.Extension]. It loads configuration, builds the
// ledger and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	if e.indexDB != nil {
		idx, err := openIndex(e.config.IndexDriver, e.indexDB)
		if err != nil {
			return err
		}
		e.index = idx
	}

	e.engine = contenthub.New(e.store, e.buildLedgerOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*contenthub.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.index != nil {
		if err := vessel.Provide(fapp.Container(), func() (indexer.Index, error) {
			return e.index, nil
		}); err != nil {
			return err
		}
	}

	if e.config.DisableRoutes {
		return nil
	}
	apiOpts := append([]api.Option{api.WithBasePath(e.config.BasePath)}, e.apiOpts...)
	e.handler = api.New(e.engine, apiOpts...)
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("contenthub: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.engine != nil {
		errs = append(errs, e.engine.Stop())
	}
	if e.index != nil {
		errs = append(errs, e.index.Close())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("contenthub: store not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	if e.index != nil {
		return e.index.Ping(ctx)
	}
	return nil
}

// openIndex picks the index backend for a grove driver name.
func openIndex(driver string, db *grove.DB) (indexer.Index, error) {
	switch driver {
	case "pg", "postgres":
		return idxpg.New(db), nil
	case "sqlite", "sqlite3":
		return idxsqlite.New(db), nil
	case "mongo", "mongodb":
		return idxmongo.New(db), nil
	default:
		return nil, fmt.Errorf("contenthub: unknown index driver %q", driver)
	}
}

// buildLedgerOpts constructs contenthub.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []contenthub.Option {
	opts := make([]contenthub.Option, 0, len(e.ledgerOpts)+6)

	opts = append(opts,
		contenthub.WithSessionTTL(e.config.SessionTTL),
		contenthub.WithHookTimeout(e.config.HookTimeout),
	)
	if e.config.PermissiveUploads {
		opts = append(opts, contenthub.WithPermissiveUploads())
	}
	if e.config.PermissiveOwnership {
		opts = append(opts, contenthub.WithPermissiveOwnership())
	}
	if e.index != nil {
		opts = append(opts, contenthub.WithPlugin(indexer.NewPlugin(e.index,
			indexer.WithBatch(e.config.IndexBatchSize, e.config.IndexFlushInterval),
		)))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("contenthub: configuration is required but not found in config files; " +
				"ensure 'extensions.contenthub' or 'contenthub' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("contenthub: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("session_ttl", e.config.SessionTTL),
		forge.F("index_driver", e.config.IndexDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.contenthub", "contenthub"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("contenthub: loaded config from file", forge.F("key", key))
			return cfg, true
		}
		e.Logger().Warn("contenthub: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	if cfg.IndexBatchSize == 0 {
		cfg.IndexBatchSize = defaults.IndexBatchSize
	}
	if cfg.IndexFlushInterval == 0 {
		cfg.IndexFlushInterval = defaults.IndexFlushInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.PermissiveUploads {
		yamlConfig.PermissiveUploads = true
	}
	if programmaticConfig.PermissiveOwnership {
		yamlConfig.PermissiveOwnership = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.IndexDriver == "" {
		yamlConfig.IndexDriver = programmaticConfig.IndexDriver
	}

	if yamlConfig.SessionTTL == 0 {
		yamlConfig.SessionTTL = programmaticConfig.SessionTTL
	}
	if yamlConfig.HookTimeout == 0 {
		yamlConfig.HookTimeout = programmaticConfig.HookTimeout
	}
	if yamlConfig.IndexBatchSize == 0 {
		yamlConfig.IndexBatchSize = programmaticConfig.IndexBatchSize
	}
	if yamlConfig.IndexFlushInterval == 0 {
		yamlConfig.IndexFlushInterval = programmaticConfig.IndexFlushInterval
	}

	return mergeWithDefaults(yamlConfig)
}
