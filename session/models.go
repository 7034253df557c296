// Package session models time-boxed view grants. A content id holds at most
// one session at a time; granting a new one replaces the previous grantee.
package session

import (
	"time"

	"github.com/xraph/contenthub/id"
	"github.com/xraph/contenthub/types"
)

// DefaultTTL is how long a paid view grant stays valid.
const DefaultTTL = 24 * time.Hour

type Session struct {
	ID        id.SessionID  `json:"id"`
	ContentID string        `json:"content_id"`
	User      types.Address `json:"user"`
	GrantedBy types.Address `json:"granted_by"`
	PaymentID id.PaymentID  `json:"payment_id,omitempty"`
	GrantedAt time.Time     `json:"granted_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Reason explains a denied access check.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonNoGrant Reason = "no session for content"
	ReasonGrantee Reason = "session belongs to another viewer"
	ReasonExpired Reason = "session expired"
)

// Result is the outcome of an access check.
type Result struct {
	Allowed   bool          `json:"allowed"`
	ContentID string        `json:"content_id"`
	User      types.Address `json:"user"`
	Reason    Reason        `json:"reason,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Remaining time.Duration `json:"remaining"`
}

// New builds a grant for user on contentID valid for ttl from now.
func New(contentID string, user, grantedBy types.Address, now time.Time, ttl time.Duration) *Session {
	now = now.UTC()
	return &Session{
		ID:        id.NewSessionID(),
		ContentID: contentID,
		User:      user,
		GrantedBy: grantedBy,
		GrantedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Allows reports whether user may view the content at now. The expiry
// instant itself is still inside the session.
func (s *Session) Allows(user types.Address, now time.Time) bool {
	return s != nil && s.User == user && !now.After(s.ExpiresAt)
}

// Check is Allows with an explanation.
func Check(s *Session, contentID string, user types.Address, now time.Time) *Result {
	r := &Result{ContentID: contentID, User: user}
	switch {
	case s == nil:
		r.Reason = ReasonNoGrant
		return r
	case s.User != user:
		r.Reason = ReasonGrantee
		return r
	}

	exp := s.ExpiresAt
	r.ExpiresAt = &exp
	if now.After(exp) {
		r.Reason = ReasonExpired
		return r
	}
	r.Allowed = true
	r.Remaining = exp.Sub(now)
	return r
}
