package sqlrow

import (
	"testing"
	"time"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
)

func TestContentRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &content.Content{
		ID:             "intro",
		PayloadRef:     "ipfs://bafy",
		ContentType:    content.TypeVideo,
		Owner:          "0xcreator",
		ViewPrice:      10,
		OwnershipPrice: 100,
		Verified:       true,
		Registry: content.RegistryEntry{
			ID:        id.NewRegistryID(),
			ContentID: "intro",
			Platform:  "contenthub",
			Chain:     "ethereum",
			Timestamp: now,
		},
	}

	got, err := FromContent(c).Record()
	if err != nil {
		t.Fatal(err)
	}
	if got.Owner != c.Owner || got.Registry.ID.String() != c.Registry.ID.String() || !got.Registry.Timestamp.Equal(now) {
		t.Errorf("round trip = %+v", got)
	}
	if !got.Registry.Verified || got.Registry.PayloadRef != c.PayloadRef {
		t.Errorf("registry entry not rebuilt: %+v", got.Registry)
	}
}

func TestPaymentRejectsForeignID(t *testing.T) {
	m := FromPayment(&payment.Payment{ID: id.NewPaymentID(), Kind: payment.KindView})
	m.ID = id.NewOwnershipID().String()
	if _, err := m.Record(); err == nil {
		t.Error("expected prefix mismatch")
	}
}

func TestOperatorMintHasNoPayment(t *testing.T) {
	r, err := ownership.Mint(ownership.Metadata{ContentID: "intro", Owner: "0xviewer"}, id.Nil, time.Unix(100, 0))
	if err != nil {
		t.Fatal(err)
	}

	m, err := FromOwnership(r)
	if err != nil {
		t.Fatal(err)
	}
	if m.PaymentID != "" {
		t.Errorf("payment_id = %q, want empty", m.PaymentID)
	}

	got, err := m.Record()
	if err != nil {
		t.Fatal(err)
	}
	if err := got.Verify(); err != nil {
		t.Error(err)
	}
	if !got.PaymentID.IsNil() {
		t.Error("payment id should stay nil")
	}
}
