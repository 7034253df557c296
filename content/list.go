package content

import "github.com/xraph/contenthub/types"

// ListOpts filters content listings. Results are ordered by content id.
type ListOpts struct {
	Owner  types.Address
	Limit  int
	Offset int
}
