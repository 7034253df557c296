package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/api"
	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/plugin"
	"github.com/xraph/contenthub/store"
)

// Option configures the contenthub Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a contenthub.Option through to the ledger.
func WithLedgerOption(opt contenthub.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, contenthub.WithPlugin(p))
	}
}

// WithAPIOption passes an api.Option through to the HTTP handler.
func WithAPIOption(opt api.Option) Option {
	return func(e *Extension) {
		e.apiOpts = append(e.apiOpts, opt)
	}
}

// WithAttestor sets how wallet headers are verified by the HTTP handler.
func WithAttestor(a caller.Attestor) Option {
	return WithAPIOption(api.WithAttestor(a))
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP handler from being built.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for contenthub routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSessionTTL sets how long a paid view stays valid.
func WithSessionTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.SessionTTL = d }
}

// WithIndexBatch sets the index flush batch size and interval.
func WithIndexBatch(size int, interval time.Duration) Option {
	return func(e *Extension) {
		e.config.IndexBatchSize = size
		e.config.IndexFlushInterval = interval
	}
}

// WithIndexDatabase projects ledger events into db, which was opened with
// the named grove driver ("pg", "sqlite" or "mongo").
func WithIndexDatabase(driver string, db *grove.DB) Option {
	return func(e *Extension) {
		e.config.IndexDriver = driver
		e.indexDB = db
	}
}
