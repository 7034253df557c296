package ownership_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
)

func testMetadata() ownership.Metadata {
	return ownership.Metadata{
		ContentID:  "c1",
		Owner:      "BOB",
		Platform:   "ContentHub",
		Chain:      "algorand",
		Timestamp:  1700000000,
		PayloadRef: "ipfs://payload",
	}
}

func TestMetadataHashIsCIDv1(t *testing.T) {
	hash, err := testMetadata().Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "bafk") {
		t.Errorf("expected raw-codec CIDv1, got %q", hash)
	}

	c, err := cid.Decode(hash)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Version() != 1 || c.Type() != cid.Raw {
		t.Errorf("cid version/codec = %d/%x", c.Version(), c.Type())
	}
}

func TestMetadataHashDeterministic(t *testing.T) {
	a, _ := testMetadata().Hash()
	b, _ := testMetadata().Hash()
	if a != b {
		t.Errorf("hash not stable: %q != %q", a, b)
	}

	other := testMetadata()
	other.Owner = "CAROL"
	c, _ := other.Hash()
	if a == c {
		t.Error("different owners produced the same hash")
	}
}

func TestMintAndVerify(t *testing.T) {
	pay := id.NewPaymentID()
	now := time.Unix(1700000000, 0)

	rec, err := ownership.Mint(testMetadata(), pay, now)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if !rec.Created || rec.Owner != "BOB" || rec.ContentID != "c1" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.PaymentID.String() != pay.String() {
		t.Errorf("payment id = %s", rec.PaymentID)
	}
	if err := rec.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}

	rec.Metadata.Owner = "MALLORY"
	if err := rec.Verify(); err == nil {
		t.Error("Verify accepted tampered metadata")
	}
}
