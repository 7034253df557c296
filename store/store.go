package store

import (
	"context"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

// Store is the unified storage interface for all contenthub records.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Reads are independent. Every write goes through Apply, which commits a
// Batch atomically.
type Store interface {
	// Platform methods
	GetPlatform(ctx context.Context) (*platform.Platform, error)

	// Content methods
	GetContent(ctx context.Context, contentID string) (*content.Content, error)
	ListContent(ctx context.Context, opts content.ListOpts) ([]*content.Content, error)

	// Session methods
	GetSession(ctx context.Context, contentID string) (*session.Session, error)

	// Ownership methods
	GetOwnership(ctx context.Context, contentID string) (*ownership.Record, error)

	// Payment methods
	ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error)
	CreatorRevenue(ctx context.Context, contentID string) (int64, error)
	UserPayments(ctx context.Context, addr types.Address) (int64, error)

	// Apply commits every element of b or none of them.
	Apply(ctx context.Context, b *Batch) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Batch is one atomic unit of writes. Backends check every precondition
// before writing anything:
//
//   - Platform: the platform must not exist yet (ErrAlreadyInitialized).
//   - any other element: the platform must exist (ErrPlatformNotInitialized).
//   - Content with ContentMustBeNew: no record under its id (ErrDuplicateContent).
//   - Ownership with OwnershipMustBeNew: no record for its content (ErrAlreadyOwned).
//   - every counter addition must fit in int64 (ErrCounterOverflow).
//
// Effects beyond storing the records: Content increments TotalContent.
// Payment appends the receipt, adds CreatorAmount to the content's revenue,
// adds Amount to the payer's total, adds Fee to TotalRevenue, and
// increments TotalUsers on the payer's first payment. Session and Ownership
// replace any previous record for their content.
type Batch struct {
	Platform *platform.Platform

	Content          *content.Content
	ContentMustBeNew bool

	Payment *payment.Payment
	Session *session.Session

	Ownership          *ownership.Record
	OwnershipMustBeNew bool
}

// Empty reports whether the batch writes nothing.
func (b *Batch) Empty() bool {
	return b == nil || (b.Platform == nil && b.Content == nil && b.Payment == nil &&
		b.Session == nil && b.Ownership == nil)
}

// Totals is the set of platform counters after applying a payment.
type Totals struct {
	TotalUsers   int64
	TotalRevenue int64
	Creator      int64
	Payer        int64
}

// ApplyPayment computes the counter values after p. creator and payer are
// the current accumulators; firstPayment reports whether the payer has no
// prior receipt. It returns types.ErrOverflow if any counter would overflow.
func ApplyPayment(plat *platform.Platform, creator, payer int64, firstPayment bool, p *payment.Payment) (Totals, error) {
	var (
		t   Totals
		err error
	)
	if t.TotalRevenue, err = types.AddInt64(plat.TotalRevenue, p.Fee); err != nil {
		return t, err
	}
	if t.Creator, err = types.AddInt64(creator, p.CreatorAmount); err != nil {
		return t, err
	}
	if t.Payer, err = types.AddInt64(payer, p.Amount); err != nil {
		return t, err
	}
	t.TotalUsers = plat.TotalUsers
	if firstPayment {
		if t.TotalUsers, err = types.AddInt64(t.TotalUsers, 1); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Page applies limit/offset to an already ordered slice. A zero limit
// returns everything after offset.
func Page[T any](items []T, limit, offset int) []T {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
