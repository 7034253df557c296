package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

// DefaultHookTimeout bounds a single hook invocation.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onPlatformInitialized []OnPlatformInitialized
	onContentUploaded     []OnContentUploaded
	onPaymentProcessed    []OnPaymentProcessed
	onPaymentFailed       []OnPaymentFailed
	onAccessGranted       []OnAccessGranted
	onOwnershipGranted    []OnOwnershipGranted
	onOwnershipMinted     []OnOwnershipMinted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPlatformInitialized); ok {
		r.onPlatformInitialized = append(r.onPlatformInitialized, v)
	}
	if v, ok := p.(OnContentUploaded); ok {
		r.onContentUploaded = append(r.onContentUploaded, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnPaymentFailed); ok {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnAccessGranted); ok {
		r.onAccessGranted = append(r.onAccessGranted, v)
	}
	if v, ok := p.(OnOwnershipGranted); ok {
		r.onOwnershipGranted = append(r.onOwnershipGranted, v)
	}
	if v, ok := p.(OnOwnershipMinted); ok {
		r.onOwnershipMinted = append(r.onOwnershipMinted, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", Interfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnPlatformInitialized", reflect.TypeOf((*OnPlatformInitialized)(nil)).Elem()},
	{"OnContentUploaded", reflect.TypeOf((*OnContentUploaded)(nil)).Elem()},
	{"OnPaymentProcessed", reflect.TypeOf((*OnPaymentProcessed)(nil)).Elem()},
	{"OnPaymentFailed", reflect.TypeOf((*OnPaymentFailed)(nil)).Elem()},
	{"OnAccessGranted", reflect.TypeOf((*OnAccessGranted)(nil)).Elem()},
	{"OnOwnershipGranted", reflect.TypeOf((*OnOwnershipGranted)(nil)).Elem()},
	{"OnOwnershipMinted", reflect.TypeOf((*OnOwnershipMinted)(nil)).Elem()},
}

// Interfaces returns the names of the hooks p implements.
func Interfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnInit", p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnShutdown", p.Name(), func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitPlatformInitialized emits a platform initialized event.
func (r *Registry) EmitPlatformInitialized(ctx context.Context, plat *platform.Platform) {
	r.mu.RLock()
	plugins := r.onPlatformInitialized
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnPlatformInitialized", p.Name(), func() error {
			return p.OnPlatformInitialized(ctx, plat)
		})
	}
}

// EmitContentUploaded emits a content uploaded event.
func (r *Registry) EmitContentUploaded(ctx context.Context, c *content.Content) {
	r.mu.RLock()
	plugins := r.onContentUploaded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnContentUploaded", p.Name(), func() error {
			return p.OnContentUploaded(ctx, c)
		})
	}
}

// EmitPaymentProcessed emits a payment processed event.
func (r *Registry) EmitPaymentProcessed(ctx context.Context, pay *payment.Payment) {
	r.mu.RLock()
	plugins := r.onPaymentProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnPaymentProcessed", p.Name(), func() error {
			return p.OnPaymentProcessed(ctx, pay)
		})
	}
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, contentID string, kind payment.Kind, payer types.Address, amount int64, cause error) {
	r.mu.RLock()
	plugins := r.onPaymentFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnPaymentFailed", p.Name(), func() error {
			return p.OnPaymentFailed(ctx, contentID, kind, payer, amount, cause)
		})
	}
}

// EmitAccessGranted emits an access granted event.
func (r *Registry) EmitAccessGranted(ctx context.Context, s *session.Session) {
	r.mu.RLock()
	plugins := r.onAccessGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnAccessGranted", p.Name(), func() error {
			return p.OnAccessGranted(ctx, s)
		})
	}
}

// EmitOwnershipGranted emits an ownership granted event.
func (r *Registry) EmitOwnershipGranted(ctx context.Context, rec *ownership.Record) {
	r.mu.RLock()
	plugins := r.onOwnershipGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnOwnershipGranted", p.Name(), func() error {
			return p.OnOwnershipGranted(ctx, rec)
		})
	}
}

// EmitOwnershipMinted emits an ownership minted event.
func (r *Registry) EmitOwnershipMinted(ctx context.Context, rec *ownership.Record) {
	r.mu.RLock()
	plugins := r.onOwnershipMinted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, "OnOwnershipMinted", p.Name(), func() error {
			return p.OnOwnershipMinted(ctx, rec)
		})
	}
}

func (r *Registry) dispatch(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins never block a payment for longer than the timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
