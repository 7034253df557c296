package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/types"
)

// ==================== Content models ====================

type contentModel struct {
	grove.BaseModel `grove:"table:contenthub_content"`

	ContentID      string    `grove:"content_id,pk"   bson:"_id"`
	Owner          string    `grove:"owner"           bson:"owner"`
	PayloadRef     string    `grove:"payload_ref"     bson:"payload_ref"`
	MetadataRef    string    `grove:"metadata_ref"    bson:"metadata_ref,omitempty"`
	ContentType    string    `grove:"content_type"    bson:"content_type"`
	ViewPrice      int64     `grove:"view_price"      bson:"view_price"`
	OwnershipPrice int64     `grove:"ownership_price" bson:"ownership_price"`
	Verified       bool      `grove:"verified"        bson:"verified"`
	RegistryID     string    `grove:"registry_id"     bson:"registry_id"`
	Platform       string    `grove:"platform"        bson:"platform"`
	Chain          string    `grove:"chain"           bson:"chain"`
	RegisteredAt   time.Time `grove:"registered_at"   bson:"registered_at"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toContentModel(c *content.Content) *contentModel {
	return &contentModel{
		ContentID:      c.ID,
		Owner:          string(c.Owner),
		PayloadRef:     c.PayloadRef,
		MetadataRef:    c.MetadataRef,
		ContentType:    string(c.ContentType),
		ViewPrice:      c.ViewPrice,
		OwnershipPrice: c.OwnershipPrice,
		Verified:       c.Verified,
		RegistryID:     c.Registry.ID.String(),
		Platform:       c.Registry.Platform,
		Chain:          c.Registry.Chain,
		RegisteredAt:   c.Registry.Timestamp,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromContentModel(m *contentModel) (*content.Content, error) {
	var regID id.RegistryID
	if m.RegistryID != "" {
		parsed, err := id.ParseRegistryID(m.RegistryID)
		if err != nil {
			return nil, err
		}
		regID = parsed
	}
	return &content.Content{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             m.ContentID,
		PayloadRef:     m.PayloadRef,
		MetadataRef:    m.MetadataRef,
		ContentType:    content.Type(m.ContentType),
		Owner:          types.Address(m.Owner),
		ViewPrice:      m.ViewPrice,
		OwnershipPrice: m.OwnershipPrice,
		Verified:       m.Verified,
		Registry: content.RegistryEntry{
			ID:          regID,
			ContentID:   m.ContentID,
			PayloadRef:  m.PayloadRef,
			ContentType: content.Type(m.ContentType),
			Platform:    m.Platform,
			Chain:       m.Chain,
			Verified:    m.Verified,
			Timestamp:   m.RegisteredAt,
		},
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:contenthub_payments"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	Kind          string    `grove:"kind"           bson:"kind"`
	ContentID     string    `grove:"content_id"     bson:"content_id"`
	Payer         string    `grove:"payer"          bson:"payer"`
	Creator       string    `grove:"creator"        bson:"creator"`
	Amount        int64     `grove:"amount"         bson:"amount"`
	Fee           int64     `grove:"fee"            bson:"fee"`
	CreatorAmount int64     `grove:"creator_amount" bson:"creator_amount"`
	FeePercent    int       `grove:"fee_percent"    bson:"fee_percent"`
	Currency      string    `grove:"currency"       bson:"currency"`
	TransferRef   string    `grove:"transfer_ref"   bson:"transfer_ref,omitempty"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:            p.ID.String(),
		Kind:          string(p.Kind),
		ContentID:     p.ContentID,
		Payer:         string(p.Payer),
		Creator:       string(p.Creator),
		Amount:        p.Amount,
		Fee:           p.Fee,
		CreatorAmount: p.CreatorAmount,
		FeePercent:    p.FeePercent,
		Currency:      p.Currency,
		TransferRef:   p.TransferRef,
		CreatedAt:     p.CreatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		ID:            payID,
		Kind:          payment.Kind(m.Kind),
		ContentID:     m.ContentID,
		Payer:         types.Address(m.Payer),
		Creator:       types.Address(m.Creator),
		Amount:        m.Amount,
		Fee:           m.Fee,
		CreatorAmount: m.CreatorAmount,
		FeePercent:    m.FeePercent,
		Currency:      m.Currency,
		TransferRef:   m.TransferRef,
		CreatedAt:     m.CreatedAt,
	}, nil
}

// ==================== Ownership models ====================

type ownershipModel struct {
	grove.BaseModel `grove:"table:contenthub_ownership"`

	ContentID    string        `grove:"content_id,pk"  bson:"_id"`
	ID           string        `grove:"id"             bson:"record_id"`
	Owner        string        `grove:"owner"          bson:"owner"`
	MetadataHash string        `grove:"metadata_hash"  bson:"metadata_hash"`
	Metadata     metadataModel `grove:"metadata"       bson:"metadata"`
	PaymentID    string        `grove:"payment_id"     bson:"payment_id,omitempty"`
	MintedAt     time.Time     `grove:"minted_at"      bson:"minted_at"`
}

// metadataModel keeps the document's fields in canonical order so the
// stored hash can be recomputed after a round trip.
type metadataModel struct {
	ContentID  string `bson:"content_id"`
	Owner      string `bson:"owner"`
	Platform   string `bson:"platform"`
	Chain      string `bson:"chain"`
	Timestamp  int64  `bson:"timestamp"`
	PayloadRef string `bson:"payload_ref"`
}

func toOwnershipModel(r *ownership.Record) *ownershipModel {
	m := &ownershipModel{
		ContentID:    r.ContentID,
		ID:           r.ID.String(),
		Owner:        string(r.Owner),
		MetadataHash: r.MetadataHash,
		Metadata: metadataModel{
			ContentID:  r.Metadata.ContentID,
			Owner:      string(r.Metadata.Owner),
			Platform:   r.Metadata.Platform,
			Chain:      r.Metadata.Chain,
			Timestamp:  r.Metadata.Timestamp,
			PayloadRef: r.Metadata.PayloadRef,
		},
		MintedAt: r.MintedAt,
	}
	if !r.PaymentID.IsNil() {
		m.PaymentID = r.PaymentID.String()
	}
	return m
}

func fromOwnershipModel(m *ownershipModel) (*ownership.Record, error) {
	ownID, err := id.ParseOwnershipID(m.ID)
	if err != nil {
		return nil, err
	}
	var payID id.PaymentID
	if m.PaymentID != "" {
		if payID, err = id.ParsePaymentID(m.PaymentID); err != nil {
			return nil, err
		}
	}
	return &ownership.Record{
		ID:           ownID,
		ContentID:    m.ContentID,
		Owner:        types.Address(m.Owner),
		MetadataHash: m.MetadataHash,
		Metadata: ownership.Metadata{
			ContentID:  m.Metadata.ContentID,
			Owner:      types.Address(m.Metadata.Owner),
			Platform:   m.Metadata.Platform,
			Chain:      m.Metadata.Chain,
			Timestamp:  m.Metadata.Timestamp,
			PayloadRef: m.Metadata.PayloadRef,
		},
		Created:   true,
		PaymentID: payID,
		MintedAt:  m.MintedAt,
	}, nil
}
