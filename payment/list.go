package payment

import "github.com/xraph/contenthub/types"

// ListOpts filters receipts. Results are ordered oldest first.
type ListOpts struct {
	ContentID string
	Payer     types.Address
	Kind      Kind
	Limit     int
	Offset    int
}

// Match reports whether p passes the filters in opts.
func (o ListOpts) Match(p *Payment) bool {
	if o.ContentID != "" && p.ContentID != o.ContentID {
		return false
	}
	if o.Payer != "" && p.Payer != o.Payer {
		return false
	}
	if o.Kind != "" && p.Kind != o.Kind {
		return false
	}
	return true
}
