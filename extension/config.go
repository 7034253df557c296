package extension

import "time"

// Config holds the contenthub extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.contenthub" or "contenthub" keys).
type Config struct {
	// DisableRoutes prevents the HTTP handler from being built and provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for contenthub routes (default: "/contenthub").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// SessionTTL is how long a paid view stays valid (default: 24h).
	SessionTTL time.Duration `json:"session_ttl" mapstructure:"session_ttl" yaml:"session_ttl"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	PermissiveUploads   bool `json:"permissive_uploads" mapstructure:"permissive_uploads" yaml:"permissive_uploads"`
	PermissiveOwnership bool `json:"permissive_ownership" mapstructure:"permissive_ownership" yaml:"permissive_ownership"`

	// IndexDriver names the grove driver of the database passed to
	// WithIndexDatabase: "pg", "sqlite" or "mongo".
	IndexDriver string `json:"index_driver" mapstructure:"index_driver" yaml:"index_driver"`

	// IndexBatchSize is the number of events buffered before the index is
	// written (default: 100).
	IndexBatchSize int `json:"index_batch_size" mapstructure:"index_batch_size" yaml:"index_batch_size"`

	// IndexFlushInterval is how often the index buffer is flushed even if the
	// batch size has not been reached (default: 5s).
	IndexFlushInterval time.Duration `json:"index_flush_interval" mapstructure:"index_flush_interval" yaml:"index_flush_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:           "/contenthub",
		SessionTTL:         24 * time.Hour,
		HookTimeout:        5 * time.Second,
		IndexBatchSize:     100,
		IndexFlushInterval: 5 * time.Second,
	}
}
