// Package observability provides a metrics extension for contenthub that
// records ledger event counts and amounts through a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/plugin"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnPlatformInitialized = (*MetricsExtension)(nil)
	_ plugin.OnContentUploaded     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentProcessed    = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed       = (*MetricsExtension)(nil)
	_ plugin.OnAccessGranted       = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipMinted     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity. Register it as a plugin.
type MetricsExtension struct {
	factory MetricFactory

	// Registry metrics
	PlatformInitialized Counter
	ContentUploaded     Counter

	// Payment metrics
	ViewPayments    Counter
	OwnPayments     Counter
	PaymentAmount   Histogram
	FeesCollected   Counter
	CreatorPayouts  Counter
	PaymentRejected Counter
	TransferFailed  Counter
	ReversalFailed  Counter
	StoreErrors     Counter

	// Access metrics
	AccessGranted   Counter
	OwnershipMinted Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		PlatformInitialized: factory.Counter("contenthub.platform.initialized"),
		ContentUploaded:     factory.Counter("contenthub.content.uploaded"),

		ViewPayments:    factory.Counter("contenthub.payment.view"),
		OwnPayments:     factory.Counter("contenthub.payment.own"),
		PaymentAmount:   factory.Histogram("contenthub.payment.amount"),
		FeesCollected:   factory.Counter("contenthub.payment.fees"),
		CreatorPayouts:  factory.Counter("contenthub.payment.creator_payouts"),
		PaymentRejected: factory.Counter("contenthub.payment.rejected"),
		TransferFailed:  factory.Counter("contenthub.payment.transfer_failed"),
		ReversalFailed:  factory.Counter("contenthub.payment.reversal_failed"),
		StoreErrors:     factory.Counter("contenthub.store.errors"),

		AccessGranted:   factory.Counter("contenthub.access.granted"),
		OwnershipMinted: factory.Counter("contenthub.ownership.minted"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnPlatformInitialized implements plugin.OnPlatformInitialized.
func (m *MetricsExtension) OnPlatformInitialized(_ context.Context, _ *platform.Platform) error {
	m.PlatformInitialized.Inc()
	return nil
}

// OnContentUploaded implements plugin.OnContentUploaded.
func (m *MetricsExtension) OnContentUploaded(_ context.Context, _ *content.Content) error {
	m.ContentUploaded.Inc()
	return nil
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (m *MetricsExtension) OnPaymentProcessed(_ context.Context, p *payment.Payment) error {
	if p.Kind == payment.KindOwn {
		m.OwnPayments.Inc()
	} else {
		m.ViewPayments.Inc()
	}
	m.PaymentAmount.Observe(float64(p.Amount))
	m.FeesCollected.Add(float64(p.Fee))
	m.CreatorPayouts.Add(float64(p.CreatorAmount))
	return nil
}

// OnPaymentFailed implements plugin.OnPaymentFailed. Refused transfers and
// storage failures are counted apart from ordinary rejections.
func (m *MetricsExtension) OnPaymentFailed(_ context.Context, _ string, _ payment.Kind, _ types.Address, _ int64, err error) error {
	switch {
	case errors.Is(err, contenthub.ErrReversalFailed):
		m.ReversalFailed.Inc()
	case errors.Is(err, contenthub.ErrTransferFailed):
		m.TransferFailed.Inc()
	case isRejection(err):
		m.PaymentRejected.Inc()
	default:
		m.StoreErrors.Inc()
	}
	return nil
}

// OnAccessGranted implements plugin.OnAccessGranted.
func (m *MetricsExtension) OnAccessGranted(_ context.Context, _ *session.Session) error {
	m.AccessGranted.Inc()
	return nil
}

// OnOwnershipMinted implements plugin.OnOwnershipMinted.
func (m *MetricsExtension) OnOwnershipMinted(_ context.Context, _ *ownership.Record) error {
	m.OwnershipMinted.Inc()
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, contenthub.ErrInvalidInput) ||
		errors.Is(err, contenthub.ErrInsufficientPayment) ||
		errors.Is(err, contenthub.ErrInsufficientFunds) ||
		errors.Is(err, contenthub.ErrUnverifiedContent) ||
		errors.Is(err, contenthub.ErrContentNotFound) ||
		errors.Is(err, contenthub.ErrAlreadyOwned) ||
		errors.Is(err, contenthub.ErrPlatformNotInitialized) ||
		errors.Is(err, contenthub.ErrUnauthenticated)
}
