// Package ownership models minted ownership records. Each record carries a
// metadata document that is content-addressed as an IPFS CIDv1 so external
// readers can verify it independently of the ledger.
package ownership

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

type Record struct {
	ID           id.OwnershipID `json:"id"`
	ContentID    string         `json:"content_id"`
	Owner        types.Address  `json:"owner"`
	MetadataHash string         `json:"metadata_hash"`
	Metadata     Metadata       `json:"metadata"`
	Created      bool           `json:"created"`
	PaymentID    id.PaymentID   `json:"payment_id,omitempty"`
	MintedAt     time.Time      `json:"minted_at"`
}

// Metadata is the document an ownership record attests to. Field order is
// fixed, so its JSON encoding is canonical.
type Metadata struct {
	ContentID  string        `json:"content_id"`
	Owner      types.Address `json:"owner"`
	Platform   string        `json:"platform"`
	Chain      string        `json:"chain"`
	Timestamp  int64         `json:"timestamp"`
	PayloadRef string        `json:"payload_ref"`
}

// Encode returns the canonical JSON encoding of m.
func (m Metadata) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Hash returns the CIDv1 (raw codec, sha2-256) of m's canonical encoding.
func (m Metadata) Hash() (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", fmt.Errorf("ownership: encode metadata: %w", err)
	}
	return HashBytes(data)
}

// HashBytes content-addresses data as a CIDv1 string.
func HashBytes(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("ownership: multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// Mint builds a record for owner over the given metadata.
func Mint(md Metadata, paymentID id.PaymentID, now time.Time) (*Record, error) {
	hash, err := md.Hash()
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:           id.NewOwnershipID(),
		ContentID:    md.ContentID,
		Owner:        md.Owner,
		MetadataHash: hash,
		Metadata:     md,
		Created:      true,
		PaymentID:    paymentID,
		MintedAt:     now.UTC(),
	}, nil
}

// Verify recomputes the metadata hash and reports whether it matches.
func (r *Record) Verify() error {
	got, err := r.Metadata.Hash()
	if err != nil {
		return err
	}
	want, err := cid.Decode(r.MetadataHash)
	if err != nil {
		return fmt.Errorf("ownership: decode metadata hash: %w", err)
	}
	if got != want.String() {
		return fmt.Errorf("ownership: metadata hash mismatch: have %s, computed %s", r.MetadataHash, got)
	}
	return nil
}
