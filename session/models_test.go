package session_test

import (
	"testing"
	"time"

	"github.com/xraph/contenthub/session"
	"github.com/xraph/contenthub/types"
)

func TestAllows(t *testing.T) {
	granted := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := session.New("c1", "ALICE", "ALICE", granted, session.DefaultTTL)

	tests := []struct {
		name string
		user string
		at   time.Time
		want bool
	}{
		{"grantee at grant time", "ALICE", granted, true},
		{"grantee at expiry", "ALICE", granted.Add(86400 * time.Second), true},
		{"grantee after expiry", "ALICE", granted.Add(86401 * time.Second), false},
		{"other user", "BOB", granted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Allows(types.Address(tt.user), tt.at); got != tt.want {
				t.Errorf("Allows(%s, %v) = %v, want %v", tt.user, tt.at, got, tt.want)
			}
		})
	}
}

func TestAllowsNilSession(t *testing.T) {
	var s *session.Session
	if s.Allows("ALICE", time.Now()) {
		t.Error("nil session allowed access")
	}
}

func TestCheck(t *testing.T) {
	granted := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := session.New("c1", "ALICE", "ALICE", granted, time.Hour)

	tests := []struct {
		name      string
		sess      *session.Session
		user      string
		at        time.Time
		allowed   bool
		reason    session.Reason
		remaining time.Duration
	}{
		{"no session", nil, "ALICE", granted, false, session.ReasonNoGrant, 0},
		{"other grantee", s, "BOB", granted, false, session.ReasonGrantee, 0},
		{"expired", s, "ALICE", granted.Add(2 * time.Hour), false, session.ReasonExpired, 0},
		{"valid", s, "ALICE", granted.Add(15 * time.Minute), true, session.ReasonNone, 45 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := session.Check(tt.sess, "c1", types.Address(tt.user), tt.at)
			if r.Allowed != tt.allowed || r.Reason != tt.reason || r.Remaining != tt.remaining {
				t.Errorf("Check = {%v %q %v}, want {%v %q %v}",
					r.Allowed, r.Reason, r.Remaining, tt.allowed, tt.reason, tt.remaining)
			}
		})
	}
}
