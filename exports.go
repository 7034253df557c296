package contenthub

import "github.com/xraph/contenthub/types"

// Re-export common types so users don't have to import the types package.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from types package.
type Address = types.Address

// Re-export Money constructors
var (
	Algo = types.Algo
	USDC = types.USDC
	Wei  = types.Wei
	Zero = types.Zero
	Sum  = types.Sum
)
