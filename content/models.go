package content

import (
	"time"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

// Type is the kind of payload a content record points at. Any non-empty
// value is accepted; these are the ones clients render natively.
type Type string

const (
	TypeVideo Type = "video"
	TypeImage Type = "image"
	TypeURL   Type = "url"
)

// Known reports whether t is one of the natively rendered types.
func (t Type) Known() bool {
	switch t {
	case TypeVideo, TypeImage, TypeURL:
		return true
	}
	return false
}

type Content struct {
	types.Entity
	ID             string        `json:"id"`
	PayloadRef     string        `json:"payload_ref"`
	MetadataRef    string        `json:"metadata_ref,omitempty"`
	ContentType    Type          `json:"content_type"`
	Owner          types.Address `json:"owner"`
	ViewPrice      int64         `json:"view_price"`
	OwnershipPrice int64         `json:"ownership_price"`
	Verified       bool          `json:"verified"`
	Registry       RegistryEntry `json:"registry"`
}

// Upload is the caller-supplied part of a content record.
type Upload struct {
	ContentID      string `json:"content_id"`
	PayloadRef     string `json:"payload_ref"`
	ContentType    Type   `json:"content_type"`
	ViewPrice      int64  `json:"view_price"`
	OwnershipPrice int64  `json:"ownership_price"`
	MetadataRef    string `json:"metadata_ref,omitempty"`
}

// RegistryEntry is the published projection of a content record that
// external readers index.
type RegistryEntry struct {
	ID          id.RegistryID `json:"id"`
	ContentID   string        `json:"content_id"`
	PayloadRef  string        `json:"payload_ref"`
	ContentType Type          `json:"content_type"`
	Platform    string        `json:"platform"`
	Chain       string        `json:"chain"`
	Verified    bool          `json:"verified"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Info is the five-field read view served to clients before payment.
type Info struct {
	PayloadRef  string        `json:"payload_ref"`
	MetadataRef string        `json:"metadata_ref,omitempty"`
	Owner       types.Address `json:"owner"`
	ViewPrice   int64         `json:"view_price"`
	ContentType Type          `json:"content_type"`
}

// Info returns the client read view of c.
func (c *Content) Info() *Info {
	return &Info{
		PayloadRef:  c.PayloadRef,
		MetadataRef: c.MetadataRef,
		Owner:       c.Owner,
		ViewPrice:   c.ViewPrice,
		ContentType: c.ContentType,
	}
}

// Price returns the amount required for a view or an ownership purchase.
func (c *Content) Price(own bool) int64 {
	if own {
		return c.OwnershipPrice
	}
	return c.ViewPrice
}
