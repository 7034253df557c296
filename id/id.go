// Package id generates and parses the TypeIDs of records the ledger creates:
// payment receipts, view sessions, ownership records, registry entries and
// custodial transfers. Content ids and addresses are chosen by callers and
// are plain strings elsewhere.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// ErrWrongPrefix is returned when a parsed id belongs to another record kind.
var ErrWrongPrefix = errors.New("id: wrong prefix")

// Prefix names the record kind encoded in an ID.
type Prefix string

const (
	PrefixPayment   Prefix = "pay"
	PrefixSession   Prefix = "sess"
	PrefixOwnership Prefix = "own"
	PrefixRegistry  Prefix = "reg"
	PrefixTransfer  Prefix = "xfer"
)

// ID is a K-sortable identifier such as "pay_01h2xcejqtf2nbrexx3vqjhp41".
// The zero value is Nil; it encodes as an empty string and as SQL NULL.
//
//nolint:recvcheck // pointer receivers only where the ID is decoded in place.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the zero ID.
var Nil ID

// PaymentID, SessionID, OwnershipID, RegistryID and TransferID document
// which prefix a field holds.
type (
	PaymentID   = ID
	SessionID   = ID
	OwnershipID = ID
	RegistryID  = ID
	TransferID  = ID
)

// New returns a fresh ID. Prefixes are compile-time constants, so an
// invalid one panics.
func New(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

func NewPaymentID() ID   { return New(PrefixPayment) }
func NewSessionID() ID   { return New(PrefixSession) }
func NewOwnershipID() ID { return New(PrefixOwnership) }
func NewRegistryID() ID  { return New(PrefixRegistry) }
func NewTransferID() ID  { return New(PrefixTransfer) }

// Parse decodes s. A non-empty want also checks the prefix.
func Parse(s string, want Prefix) (ID, error) {
	if s == "" {
		return Nil, errors.New("id: empty")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	got := ID{tid: tid, set: true}
	if want != "" && got.Prefix() != want {
		return Nil, fmt.Errorf("%w: want %q, got %q", ErrWrongPrefix, want, got.Prefix())
	}
	return got, nil
}

func ParsePaymentID(s string) (ID, error)   { return Parse(s, PrefixPayment) }
func ParseOwnershipID(s string) (ID, error) { return Parse(s, PrefixOwnership) }
func ParseRegistryID(s string) (ID, error)  { return Parse(s, PrefixRegistry) }

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

func (i ID) IsNil() bool { return !i.set }

func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText accepts any prefix; an empty input yields Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data), "")
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value stores Nil as NULL so optional references stay nullable.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	}
	return fmt.Errorf("id: cannot scan %T", src)
}
