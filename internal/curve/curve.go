// internal/curve/curve.go
package curve

import (
	"errors"
	"fmt"
	"math"
)

// Default launch parameters of the bonding-curve contract.
const (
	DefaultInitialPrice  = 0.0001533
	DefaultMaxSupply     = 1_000_000_000
	DefaultCurveFraction = 0.70
)

// ErrInvalidConfig is returned by NewPricer for a configuration that would
// make the price or progress formulas undefined.
var ErrInvalidConfig = errors.New("invalid bonding curve config")

// Config fixes the linear price schedule of a token. It is set at deploy time
// and never changes for the lifetime of the token.
type Config struct {
	InitialPrice  float64 `mapstructure:"initial_price" json:"initial_price"`
	MaxSupply     uint64  `mapstructure:"max_supply" json:"max_supply"`
	CurveFraction float64 `mapstructure:"curve_fraction" json:"curve_fraction"`
}

// DefaultConfig returns the parameters the launchpad contract is deployed with.
func DefaultConfig() Config {
	return Config{
		InitialPrice:  DefaultInitialPrice,
		MaxSupply:     DefaultMaxSupply,
		CurveFraction: DefaultCurveFraction,
	}
}

// Validate checks 0 < CurveFraction <= 1, InitialPrice > 0 and MaxSupply > 0.
func (c Config) Validate() error {
	if math.IsNaN(c.InitialPrice) || math.IsInf(c.InitialPrice, 0) || c.InitialPrice <= 0 {
		return fmt.Errorf("%w: initial_price must be positive, got %v", ErrInvalidConfig, c.InitialPrice)
	}
	if c.MaxSupply == 0 {
		return fmt.Errorf("%w: max_supply must be positive", ErrInvalidConfig)
	}
	if math.IsNaN(c.CurveFraction) || c.CurveFraction <= 0 || c.CurveFraction > 1 {
		return fmt.Errorf("%w: curve_fraction must be in (0, 1], got %v", ErrInvalidConfig, c.CurveFraction)
	}
	return nil
}

// Pricer maps circulating supply to spot price and curve fill. It holds only
// the immutable config and is safe for concurrent use.
type Pricer struct {
	cfg   Config
	limit float64
}

// NewPricer validates cfg and returns a Pricer for it.
func NewPricer(cfg Config) (*Pricer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pricer{
		cfg:   cfg,
		limit: float64(cfg.MaxSupply) * cfg.CurveFraction,
	}, nil
}

// MustPricer is NewPricer for configs known to be valid, such as DefaultConfig.
func MustPricer(cfg Config) *Pricer {
	p, err := NewPricer(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Config returns the schedule the pricer was built with.
func (p *Pricer) Config() Config {
	return p.cfg
}

// Limit is the curve-eligible supply, MaxSupply * CurveFraction.
func (p *Pricer) Limit() float64 {
	return p.limit
}

// Price returns the spot price at currentSupply. Supply past the curve limit
// does not raise the price further.
func (p *Pricer) Price(currentSupply uint64) float64 {
	return p.price(float64(currentSupply))
}

// ProgressPercent returns how much of the curve-eligible supply is sold, in
// [0, 100].
func (p *Pricer) ProgressPercent(currentSupply uint64) float64 {
	return p.progress(float64(currentSupply))
}

// MarketCap values currentSupply at the current spot price.
func (p *Pricer) MarketCap(currentSupply uint64) float64 {
	return p.Price(currentSupply) * float64(currentSupply)
}

func (p *Pricer) price(supply float64) float64 {
	effective := math.Min(supply, p.limit)
	increase := (effective * p.cfg.InitialPrice) / float64(p.cfg.MaxSupply)
	return p.cfg.InitialPrice + increase
}

func (p *Pricer) progress(supply float64) float64 {
	return math.Min((supply/p.limit)*100, 100)
}
