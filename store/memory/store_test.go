package memory_test

import (
	"testing"

	"github.com/xraph/contenthub/store"
	"github.com/xraph/contenthub/store/memory"
	"github.com/xraph/contenthub/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}
