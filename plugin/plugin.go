// Package plugin provides an extensible plugin system for the content ledger.
// Plugins can hook into lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Platform hooks
// ──────────────────────────────────────────────────

// OnPlatformInitialized is called once the platform configuration is stored.
type OnPlatformInitialized interface {
	Plugin
	OnPlatformInitialized(ctx context.Context, p *platform.Platform) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnContentUploaded is called after a content record is committed.
type OnContentUploaded interface {
	Plugin
	OnContentUploaded(ctx context.Context, c *content.Content) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentProcessed is called after a payment and its counters are committed.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, p *payment.Payment) error
}

// OnPaymentFailed is called when a payment is rejected or rolled back.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, contentID string, kind payment.Kind, payer types.Address, amount int64, err error) error
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnAccessGranted is called when a view session is granted.
type OnAccessGranted interface {
	Plugin
	OnAccessGranted(ctx context.Context, s *session.Session) error
}

// ──────────────────────────────────────────────────
// Ownership hooks
// ──────────────────────────────────────────────────

// OnOwnershipGranted is called when a purchase transfers ownership to the payer.
type OnOwnershipGranted interface {
	Plugin
	OnOwnershipGranted(ctx context.Context, r *ownership.Record) error
}

// OnOwnershipMinted is called for every stored ownership record, purchased or
// minted directly by the platform owner.
type OnOwnershipMinted interface {
	Plugin
	OnOwnershipMinted(ctx context.Context, r *ownership.Record) error
}
