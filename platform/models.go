package platform

import (
	"time"

	"github.com/xraph/contenthub/types"
)

const (
	DefaultName       = "ContentHub"
	DefaultVersion    = "1.0.0"
	DefaultFeePercent = 5
	DefaultAsset      = "algo"
	DefaultChain      = "algorand"
)

// Config is the operator-supplied part of the platform record.
type Config struct {
	Name       string        `json:"name" toml:"name"`
	Version    string        `json:"version" toml:"version"`
	FeePercent int           `json:"fee_percent" toml:"fee_percent"`
	Owner      types.Address `json:"owner" toml:"owner"`
	Asset      string        `json:"asset" toml:"asset"`
	Chain      string        `json:"chain" toml:"chain"`
}

// WithDefaults fills empty descriptive fields. FeePercent and Owner are
// left alone: zero is a valid fee and the owner has no sensible default.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Asset == "" {
		c.Asset = DefaultAsset
	}
	if c.Chain == "" {
		c.Chain = DefaultChain
	}
	return c
}

// FeeInAdvisedRange reports whether the fee falls inside 1..10 percent.
func (c Config) FeeInAdvisedRange() bool {
	return c.FeePercent >= 1 && c.FeePercent <= 10
}

type Platform struct {
	Config
	InitializedAt time.Time `json:"initialized_at"`
	TotalContent  int64     `json:"total_content"`
	TotalUsers    int64     `json:"total_users"`
	TotalRevenue  int64     `json:"total_revenue"`
}

// Stats is the aggregate read view of the platform.
type Stats struct {
	TotalContent int64       `json:"total_content"`
	TotalUsers   int64       `json:"total_users"`
	TotalRevenue types.Money `json:"total_revenue"`
	FeePercent   int         `json:"fee_percent"`
}

// Stats returns the aggregate view of p.
func (p *Platform) Stats() *Stats {
	return &Stats{
		TotalContent: p.TotalContent,
		TotalUsers:   p.TotalUsers,
		TotalRevenue: types.New(p.TotalRevenue, p.Asset),
		FeePercent:   p.FeePercent,
	}
}

// Money wraps an amount in the platform's asset.
func (p *Platform) Money(amount int64) types.Money {
	return types.New(amount, p.Asset)
}
