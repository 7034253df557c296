// Package sqlrow holds the grove row models shared by the SQL index
// backends. Both dialects use the same tables; only placeholders and column
// types differ.
package sqlrow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/ownership"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/types"
)

// ==================== Content ====================

type Content struct {
	grove.BaseModel `grove:"table:contenthub_content"`

	ContentID      string    `grove:"content_id,pk"`
	Owner          string    `grove:"owner"`
	PayloadRef     string    `grove:"payload_ref"`
	MetadataRef    string    `grove:"metadata_ref"`
	ContentType    string    `grove:"content_type"`
	ViewPrice      int64     `grove:"view_price"`
	OwnershipPrice int64     `grove:"ownership_price"`
	Verified       bool      `grove:"verified"`
	RegistryID     string    `grove:"registry_id"`
	Platform       string    `grove:"platform"`
	Chain          string    `grove:"chain"`
	RegisteredAt   time.Time `grove:"registered_at"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func FromContent(c *content.Content) *Content {
	return &Content{
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

func (m *Content) Record() (*content.Content, error) {
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

// ==================== Payment ====================

type Payment struct {
	grove.BaseModel `grove:"table:contenthub_payments"`

	ID            string    `grove:"id,pk"`
	Kind          string    `grove:"kind"`
	ContentID     string    `grove:"content_id"`
	Payer         string    `grove:"payer"`
	Creator       string    `grove:"creator"`
	Amount        int64     `grove:"amount"`
	Fee           int64     `grove:"fee"`
	CreatorAmount int64     `grove:"creator_amount"`
	FeePercent    int       `grove:"fee_percent"`
	Currency      string    `grove:"currency"`
	TransferRef   string    `grove:"transfer_ref"`
	CreatedAt     time.Time `grove:"created_at"`
}

func FromPayment(p *payment.Payment) Payment {
	return Payment{
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

func (m *Payment) Record() (*payment.Payment, error) {
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

// ==================== Ownership ====================

// Ownership keeps the metadata document as its canonical JSON text.
type Ownership struct {
	grove.BaseModel `grove:"table:contenthub_ownership"`

	ContentID    string    `grove:"content_id,pk"`
	ID           string    `grove:"id"`
	Owner        string    `grove:"owner"`
	MetadataHash string    `grove:"metadata_hash"`
	Metadata     string    `grove:"metadata"`
	PaymentID    string    `grove:"payment_id"`
	MintedAt     time.Time `grove:"minted_at"`
}

func FromOwnership(r *ownership.Record) (*Ownership, error) {
	md, err := r.Metadata.Encode()
	if err != nil {
		return nil, err
	}
	m := &Ownership{
		ContentID:    r.ContentID,
		ID:           r.ID.String(),
		Owner:        string(r.Owner),
		MetadataHash: r.MetadataHash,
		Metadata:     string(md),
		MintedAt:     r.MintedAt,
	}
	// Operator mints carry no payment.
	if !r.PaymentID.IsNil() {
		m.PaymentID = r.PaymentID.String()
	}
	return m, nil
}

func (m *Ownership) Record() (*ownership.Record, error) {
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
	var md ownership.Metadata
	if err := json.Unmarshal([]byte(m.Metadata), &md); err != nil {
		return nil, fmt.Errorf("sqlrow: decode ownership metadata: %w", err)
	}
	return &ownership.Record{
		ID:           ownID,
		ContentID:    m.ContentID,
		Owner:        types.Address(m.Owner),
		MetadataHash: m.MetadataHash,
		Metadata:     md,
		Created:      true,
		PaymentID:    payID,
		MintedAt:     m.MintedAt,
	}, nil
}
