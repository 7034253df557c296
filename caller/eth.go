package caller

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/contenthub/types"
)

// MessagePrefix is prepended to the nonce to form the signed message.
const MessagePrefix = "contenthub:"

// DefaultNonceWindow bounds how far a nonce timestamp may drift from now.
const DefaultNonceWindow = 5 * time.Minute

// EthAttestor verifies EIP-191 personal_sign signatures over
// "contenthub:<nonce>", where nonce is a unix timestamp in seconds.
// Addresses are returned lowercased with the 0x prefix.
type EthAttestor struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// EthOption configures an EthAttestor.
type EthOption func(*EthAttestor)

// WithNonceWindow sets the accepted clock drift for nonces.
func WithNonceWindow(d time.Duration) EthOption {
	return func(a *EthAttestor) { a.window = d }
}

// WithNow sets the time source.
func WithNow(now func() time.Time) EthOption {
	return func(a *EthAttestor) { a.now = now }
}

// NewEthAttestor creates an EthAttestor.
func NewEthAttestor(opts ...EthOption) *EthAttestor {
	a := &EthAttestor{
		window: DefaultNonceWindow,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Message returns the text a wallet signs for nonce.
func Message(nonce string) string { return MessagePrefix + nonce }

// Attest recovers the signer of c and checks it against c.Address.
func (a *EthAttestor) Attest(_ context.Context, c Claim) (types.Address, error) {
	if c.Address == "" || c.Nonce == "" || c.Signature == "" {
		return "", ErrMissingClaim
	}

	now := a.now()
	ts, err := strconv.ParseInt(c.Nonce, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a unix timestamp", ErrStaleNonce, c.Nonce)
	}
	issued := time.Unix(ts, 0)
	if issued.Before(now.Add(-a.window)) || issued.After(now.Add(a.window)) {
		return "", ErrStaleNonce
	}

	signer, err := recoverSigner(Message(c.Nonce), c.Signature)
	if err != nil {
		return "", err
	}
	if signer != normalize(c.Address) {
		return "", ErrAddressMismatch
	}

	if err := a.consume(signer+"/"+c.Nonce, issued, now); err != nil {
		return "", err
	}
	return types.Address(signer), nil
}

func (a *EthAttestor) consume(key string, issued, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, t := range a.seen {
		if t.Before(now.Add(-a.window)) {
			delete(a.seen, k)
		}
	}
	if _, ok := a.seen[key]; ok {
		return ErrReplayedNonce
	}
	a.seen[key] = issued
	return nil
}

func recoverSigner(msg, signature string) (string, error) {
	hash := ethcrypto.Keccak256(
		[]byte("\x19Ethereum Signed Message:\n"+strconv.Itoa(len(msg))),
		[]byte(msg),
	)

	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(signature), "0x"), "0X"))
	if err != nil || len(sig) != 65 {
		return "", fmt.Errorf("%w: want 65 hex-encoded bytes", ErrInvalidSignature)
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return normalize(ethcrypto.PubkeyToAddress(*pub).Hex()), nil
}

func normalize(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}
