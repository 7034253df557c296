// Package custody defines how value moves when a purchase settles. The
// ledger hands every payment to a Custodian before committing its books and
// reverses the transfer if the commit fails, so a payment either settles in
// both places or in neither.
package custody

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

var (
	ErrInsufficientFunds = errors.New("custody: insufficient funds")
	ErrUnknownTransfer   = errors.New("custody: unknown transfer")
	ErrInvalidTransfer   = errors.New("custody: invalid transfer")
)

// Transfer moves Amount from From. Payout of it goes to To and the rest
// stays with the platform as its fee.
type Transfer struct {
	ID        id.TransferID `json:"id"`
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Amount    int64         `json:"amount"`
	Payout    int64         `json:"payout"`
	Asset     string        `json:"asset"`
	ContentID string        `json:"content_id"`
}

// Fee is the part of the transfer retained by the platform.
func (t *Transfer) Fee() int64 { return t.Amount - t.Payout }

// Validate checks the amounts are coherent.
func (t *Transfer) Validate() error {
	if t.Amount < 0 || t.Payout < 0 || t.Payout > t.Amount {
		return ErrInvalidTransfer
	}
	if t.From == "" || t.To == "" {
		return ErrInvalidTransfer
	}
	return nil
}

// Receipt proves a transfer settled. Ref is the custodian's reference for it.
type Receipt struct {
	Transfer  Transfer  `json:"transfer"`
	Ref       string    `json:"ref"`
	SettledAt time.Time `json:"settled_at"`
}

// Custodian settles transfers atomically.
type Custodian interface {
	Transfer(ctx context.Context, t *Transfer) (*Receipt, error)
	Reverse(ctx context.Context, r *Receipt) error
}
