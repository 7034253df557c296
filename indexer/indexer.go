// Package indexer projects committed ledger events into a queryable
// database for external readers. The ledger's own store answers
// owner-filtered queries by scanning; an index answers them from
// secondary indexes and can live in a different database than the ledger.
package indexer

import (
	"context"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/types"
)

// Event is one committed change. Exactly one field is set.
type Event struct {
	Content   *content.Content
	Payment   *payment.Payment
	Ownership *ownership.Record
}

// Index stores projections and answers reader queries. Put must be
// idempotent: replaying an event leaves the index unchanged.
type Index interface {
	Put(ctx context.Context, events []Event) error

	// ContentByOwner lists content owned by opts.Owner, ordered by id.
	ContentByOwner(ctx context.Context, opts content.ListOpts) ([]*content.Content, error)

	// Payments lists receipts matching opts, oldest first.
	Payments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error)

	// OwnedBy lists the ownership records held by owner, ordered by content id.
	OwnedBy(ctx context.Context, owner types.Address) ([]*ownership.Record, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Split groups events by kind, keeping their order.
func Split(events []Event) (contents []*content.Content, payments []*payment.Payment, records []*ownership.Record) {
	for _, e := range events {
		switch {
		case e.Content != nil:
			contents = append(contents, e.Content)
		case e.Payment != nil:
			payments = append(payments, e.Payment)
		case e.Ownership != nil:
			records = append(records, e.Ownership)
		}
	}
	return contents, payments, records
}
