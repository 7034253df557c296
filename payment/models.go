package payment

import (
	"time"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

type Kind string

const (
	KindView Kind = "view"
	KindOwn  Kind = "own"
)

// Valid reports whether k is a known payment kind.
func (k Kind) Valid() bool { return k == KindView || k == KindOwn }

// Payment is the receipt of one settled purchase. Amount == Fee + CreatorAmount.
type Payment struct {
	ID            id.PaymentID  `json:"id"`
	Kind          Kind          `json:"kind"`
	ContentID     string        `json:"content_id"`
	Payer         types.Address `json:"payer"`
	Creator       types.Address `json:"creator"`
	Amount        int64         `json:"amount"`
	Fee           int64         `json:"fee"`
	CreatorAmount int64         `json:"creator_amount"`
	FeePercent    int           `json:"fee_percent"`
	Currency      string        `json:"currency"`
	TransferRef   string        `json:"transfer_ref,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Total returns the amount paid as Money.
func (p *Payment) Total() types.Money { return types.New(p.Amount, p.Currency) }

// PlatformFee returns the fee retained by the platform as Money.
func (p *Payment) PlatformFee() types.Money { return types.New(p.Fee, p.Currency) }

// CreatorShare returns the amount forwarded to the creator as Money.
func (p *Payment) CreatorShare() types.Money { return types.New(p.CreatorAmount, p.Currency) }
