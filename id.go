package contenthub

import "github.com/xraph/contenthub/id"

// ID identifies records the ledger creates.
type ID = id.ID

// PaymentID identifies a payment receipt.
type PaymentID = id.PaymentID
