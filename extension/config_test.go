package extension

import (
	"testing"
	"time"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{SessionTTL: time.Hour})
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want explicit 1h kept", cfg.SessionTTL)
	}
	if cfg.BasePath != "/contenthub" || cfg.HookTimeout != 5*time.Second || cfg.IndexBatchSize != 100 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name     string
		yaml     Config
		prog     Config
		validate func(t *testing.T, got Config)
	}{
		{
			name: "yaml wins for strings",
			yaml: Config{BasePath: "/hub", IndexDriver: "pg"},
			prog: Config{BasePath: "/other", IndexDriver: "mongo"},
			validate: func(t *testing.T, got Config) {
				if got.BasePath != "/hub" || got.IndexDriver != "pg" {
					t.Errorf("got %q %q", got.BasePath, got.IndexDriver)
				}
			},
		},
		{
			name: "programmatic fills gaps",
			yaml: Config{},
			prog: Config{IndexDriver: "sqlite", SessionTTL: 2 * time.Hour, IndexBatchSize: 7},
			validate: func(t *testing.T, got Config) {
				if got.IndexDriver != "sqlite" || got.SessionTTL != 2*time.Hour || got.IndexBatchSize != 7 {
					t.Errorf("got %+v", got)
				}
			},
		},
		{
			name: "programmatic flags are sticky",
			yaml: Config{},
			prog: Config{DisableRoutes: true, PermissiveOwnership: true},
			validate: func(t *testing.T, got Config) {
				if !got.DisableRoutes || !got.PermissiveOwnership || got.PermissiveUploads {
					t.Errorf("got %+v", got)
				}
			},
		},
		{
			name: "zeros become defaults",
			yaml: Config{},
			prog: Config{},
			validate: func(t *testing.T, got Config) {
				want := DefaultConfig()
				if got.BasePath != want.BasePath || got.IndexFlushInterval != want.IndexFlushInterval {
					t.Errorf("got %+v", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, mergeConfigurations(tt.yaml, tt.prog))
		})
	}
}

func TestOpenIndexUnknownDriver(t *testing.T) {
	if _, err := openIndex("cassandra", nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOptions(t *testing.T) {
	e := New(WithBasePath("/hub"), WithDisableMigrate(), WithIndexBatch(10, time.Second), WithIndexDatabase("pg", nil))
	if e.config.BasePath != "/hub" || !e.config.DisableMigrate {
		t.Errorf("config = %+v", e.config)
	}
	if e.config.IndexBatchSize != 10 || e.config.IndexDriver != "pg" {
		t.Errorf("index config = %+v", e.config)
	}
	if e.Engine() != nil || e.Handler() != nil {
		t.Error("engine and handler should be nil before Register")
	}
}
