// internal/governance/validity.go
package governance

import (
	"fmt"
	"math"
)

const (
	DefaultMinVoters         uint32  = 100
	DefaultMinWinningPercent float64 = 59.0
)

// Tally is a snapshot of a proposal's aggregate votes.
type Tally struct {
	YesVotes       uint32  `json:"yes_votes"`
	NoVotes        uint32  `json:"no_votes"`
	YesVotingPower float64 `json:"yes_voting_power"`
	NoVotingPower  float64 `json:"no_voting_power"`
}

// Policy holds the thresholds a proposal outcome must clear.
type Policy struct {
	MinVoters         uint32  `mapstructure:"min_voters" json:"min_voters"`
	MinWinningPercent float64 `mapstructure:"min_winning_percent" json:"min_winning_percent"`
}

// DefaultPolicy requires 100 voters and a 59% winning side.
func DefaultPolicy() Policy {
	return Policy{
		MinVoters:         DefaultMinVoters,
		MinWinningPercent: DefaultMinWinningPercent,
	}
}

// Verdict explains whether a tally is a valid outcome. IsValid is true iff
// Reasons is empty.
type Verdict struct {
	IsValid           bool     `json:"is_valid"`
	Reasons           []string `json:"reasons"`
	TotalVoters       uint64   `json:"total_voters"`
	WinningPercentage float64  `json:"winning_percentage"`
	IsTie             bool     `json:"is_tie"`
}

// Evaluate applies the quorum, tie and supermajority rules to t.
//
// Quorum and ties are judged on raw vote counts. Voting power is carried on
// the tally for display but is not weighted into either rule. Counts are
// summed in 64 bits so no pair of uint32 tallies can wrap.
func Evaluate(t Tally, p Policy) Verdict {
	totalVoters := uint64(t.YesVotes) + uint64(t.NoVotes)

	var yesPct, noPct float64
	if totalVoters > 0 {
		yesPct = float64(t.YesVotes) / float64(totalVoters) * 100
		noPct = float64(t.NoVotes) / float64(totalVoters) * 100
	}

	isTie := t.YesVotes == t.NoVotes && totalVoters > 0
	winning := math.Max(yesPct, noPct)

	reasons := make([]string, 0, 2)
	if totalVoters < uint64(p.MinVoters) {
		reasons = append(reasons, fmt.Sprintf("Only %d voters (minimum %d required)", totalVoters, p.MinVoters))
	}
	if isTie {
		reasons = append(reasons, "Proposal ended in a tie")
	}
	if !isTie && winning < p.MinWinningPercent {
		reasons = append(reasons, fmt.Sprintf("Winning option only has %.1f%% (minimum %.0f%% required)", winning, p.MinWinningPercent))
	}

	return Verdict{
		IsValid:           totalVoters >= uint64(p.MinVoters) && !isTie && winning >= p.MinWinningPercent,
		Reasons:           reasons,
		TotalVoters:       totalVoters,
		WinningPercentage: winning,
		IsTie:             isTie,
	}
}

// PolicyOption overrides one threshold of DefaultPolicy.
type PolicyOption func(*Policy)

// WithMinVoters sets the quorum.
func WithMinVoters(n uint32) PolicyOption {
	return func(p *Policy) {
		p.MinVoters = n
	}
}

// WithMinWinningPercent sets the supermajority threshold.
func WithMinWinningPercent(pct float64) PolicyOption {
	return func(p *Policy) {
		p.MinWinningPercent = pct
	}
}

// EvaluateProposalValidity evaluates raw counts against DefaultPolicy with
// opts applied.
func EvaluateProposalValidity(yesVotes, noVotes uint32, opts ...PolicyOption) Verdict {
	p := DefaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return Evaluate(Tally{YesVotes: yesVotes, NoVotes: noVotes}, p)
}
