package id_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/contenthub/id"
)

func TestPrefixes(t *testing.T) {
	tests := []struct {
		newFn func() id.ID
		want  id.Prefix
	}{
		{id.NewPaymentID, id.PrefixPayment},
		{id.NewSessionID, id.PrefixSession},
		{id.NewOwnershipID, id.PrefixOwnership},
		{id.NewRegistryID, id.PrefixRegistry},
		{id.NewTransferID, id.PrefixTransfer},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := tt.newFn()
			if got.Prefix() != tt.want || !strings.HasPrefix(got.String(), string(tt.want)+"_") {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
			back, err := id.Parse(got.String(), tt.want)
			if err != nil || back.String() != got.String() {
				t.Errorf("Parse(%q) = %q, %v", got, back, err)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		parse func(string) (id.ID, error)
		wrong bool
	}{
		{"session as payment", id.NewSessionID().String(), id.ParsePaymentID, true},
		{"registry as ownership", id.NewRegistryID().String(), id.ParseOwnershipID, true},
		{"transfer as registry", id.NewTransferID().String(), id.ParseRegistryID, true},
		{"empty", "", id.ParsePaymentID, false},
		{"not a typeid", "pay_nope", id.ParsePaymentID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.input)
			}
			if got := errors.Is(err, id.ErrWrongPrefix); got != tt.wrong {
				t.Errorf("errors.Is(ErrWrongPrefix) = %v, want %v (%v)", got, tt.wrong, err)
			}
		})
	}
}

// An operator mint has no payment; the receipt reference must survive
// JSON and SQL as empty / NULL.
func TestNilReference(t *testing.T) {
	type record struct {
		ID        id.OwnershipID `json:"id"`
		PaymentID id.PaymentID   `json:"payment_id"`
	}
	in := record{ID: id.NewOwnershipID()}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"payment_id":""`) {
		t.Errorf("json = %s", data)
	}
	var out record
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID.String() != in.ID.String() || !out.PaymentID.IsNil() {
		t.Errorf("decoded = %+v", out)
	}

	if v, err := in.PaymentID.Value(); v != nil || err != nil {
		t.Errorf("Value() = %v, %v, want NULL", v, err)
	}
}

func TestScan(t *testing.T) {
	pay := id.NewPaymentID()
	tests := []struct {
		name    string
		src     any
		want    string
		wantErr bool
	}{
		{"string", pay.String(), pay.String(), false},
		{"bytes", []byte(pay.String()), pay.String(), false},
		{"null", nil, "", false},
		{"empty string", "", "", false},
		{"int", 42, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := id.NewSessionID()
			err := got.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan err = %v", err)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("Scan = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := id.NewPaymentID().String()
		if seen[s] {
			t.Fatalf("duplicate id %q", s)
		}
		seen[s] = true
	}
}
