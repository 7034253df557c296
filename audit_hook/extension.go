// Package audithook bridges contenthub ledger events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/plugin"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnPlatformInitialized = (*Extension)(nil)
	_ plugin.OnContentUploaded     = (*Extension)(nil)
	_ plugin.OnPaymentProcessed    = (*Extension)(nil)
	_ plugin.OnPaymentFailed       = (*Extension)(nil)
	_ plugin.OnAccessGranted       = (*Extension)(nil)
	_ plugin.OnOwnershipGranted    = (*Extension)(nil)
	_ plugin.OnOwnershipMinted     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension records ledger events through a Recorder.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnPlatformInitialized implements plugin.OnPlatformInitialized.
func (e *Extension) OnPlatformInitialized(ctx context.Context, p *platform.Platform) error {
	severity := SeverityInfo
	if !p.FeeInAdvisedRange() {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionPlatformInitialized, severity, OutcomeSuccess,
		ResourcePlatform, p.Name, p.Owner, CategoryAdmin, nil,
		"fee_percent", p.FeePercent,
		"asset", p.Asset,
		"chain", p.Chain,
	)
}

// OnContentUploaded implements plugin.OnContentUploaded.
func (e *Extension) OnContentUploaded(ctx context.Context, c *content.Content) error {
	return e.record(ctx, ActionContentUploaded, SeverityInfo, OutcomeSuccess,
		ResourceContent, c.ID, c.Owner, CategoryRegistry, nil,
		"content_type", string(c.ContentType),
		"view_price", c.ViewPrice,
		"ownership_price", c.OwnershipPrice,
		"registry_id", c.Registry.ID.String(),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (e *Extension) OnPaymentProcessed(ctx context.Context, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentProcessed, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), p.Payer, CategoryPayment, nil,
		"content_id", p.ContentID,
		"kind", string(p.Kind),
		"amount", p.Amount,
		"fee", p.Fee,
		"creator_amount", p.CreatorAmount,
		"creator", string(p.Creator),
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed. A transfer left
// standing after a failed commit is recorded as critical with its ref.
func (e *Extension) OnPaymentFailed(ctx context.Context, contentID string, kind payment.Kind, payer types.Address, amount int64, err error) error {
	var stranded *contenthub.ReversalError
	if errors.As(err, &stranded) {
		return e.record(ctx, ActionPaymentFailed, SeverityCritical, OutcomeFailure,
			ResourceContent, contentID, payer, CategoryPayment, err,
			"kind", string(kind),
			"amount", amount,
			"transfer_ref", stranded.TransferRef,
		)
	}
	return e.record(ctx, ActionPaymentFailed, SeverityWarning, OutcomeFailure,
		ResourceContent, contentID, payer, CategoryPayment, err,
		"kind", string(kind),
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Access and ownership hooks
// ──────────────────────────────────────────────────

// OnAccessGranted implements plugin.OnAccessGranted.
func (e *Extension) OnAccessGranted(ctx context.Context, s *session.Session) error {
	return e.record(ctx, ActionAccessGranted, SeverityInfo, OutcomeSuccess,
		ResourceSession, s.ID.String(), s.GrantedBy, CategoryAccess, nil,
		"content_id", s.ContentID,
		"user", string(s.User),
		"expires_at", s.ExpiresAt,
	)
}

// OnOwnershipGranted implements plugin.OnOwnershipGranted.
func (e *Extension) OnOwnershipGranted(ctx context.Context, r *ownership.Record) error {
	return e.record(ctx, ActionOwnershipGranted, SeverityInfo, OutcomeSuccess,
		ResourceOwnership, r.ID.String(), r.Owner, CategoryOwnership, nil,
		"content_id", r.ContentID,
		"payment_id", r.PaymentID.String(),
	)
}

// OnOwnershipMinted implements plugin.OnOwnershipMinted.
func (e *Extension) OnOwnershipMinted(ctx context.Context, r *ownership.Record) error {
	return e.record(ctx, ActionOwnershipMinted, SeverityInfo, OutcomeSuccess,
		ResourceOwnership, r.ID.String(), r.Owner, CategoryOwnership, nil,
		"content_id", r.ContentID,
		"metadata_hash", r.MetadataHash,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID string,
	actor types.Address,
	category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      string(actor),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
