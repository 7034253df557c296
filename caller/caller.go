// Package caller carries the attested identity of whoever invoked a ledger
// operation. Transports verify a Claim with an Attestor and attach the
// resulting address to the request context; the ledger reads it back with
// FromContext and never trusts an address passed as a plain argument.
package caller

import (
	"context"
	"errors"

	"github.com/xraph/contenthub/types"
)

var (
	ErrMissingClaim     = errors.New("caller: missing claim")
	ErrInvalidSignature = errors.New("caller: invalid signature")
	ErrAddressMismatch  = errors.New("caller: signer does not match claimed address")
	ErrStaleNonce       = errors.New("caller: nonce outside freshness window")
	ErrReplayedNonce    = errors.New("caller: nonce already used")
)

type ctxKey struct{}

// WithAddress returns a context carrying addr as the attested caller.
func WithAddress(ctx context.Context, addr types.Address) context.Context {
	return context.WithValue(ctx, ctxKey{}, addr)
}

// FromContext returns the attested caller, if any.
func FromContext(ctx context.Context) (types.Address, bool) {
	addr, ok := ctx.Value(ctxKey{}).(types.Address)
	if !ok || addr.IsZero() {
		return "", false
	}
	return addr, true
}

// Claim is what a client presents to prove who it is.
type Claim struct {
	Address   string
	Nonce     string
	Signature string
}

// Attestor turns a claim into a verified address.
type Attestor interface {
	Attest(ctx context.Context, c Claim) (types.Address, error)
}

// Static attests every claim as the same fixed address. Used by local
// tooling that acts on behalf of a configured operator.
type Static types.Address

func (s Static) Attest(context.Context, Claim) (types.Address, error) {
	if s == "" {
		return "", ErrMissingClaim
	}
	return types.Address(s), nil
}

// Insecure accepts the claimed address without verification.
type Insecure struct{}

func (Insecure) Attest(_ context.Context, c Claim) (types.Address, error) {
	addr, ok := types.ParseAddress(c.Address)
	if !ok {
		return "", ErrMissingClaim
	}
	return addr, nil
}
