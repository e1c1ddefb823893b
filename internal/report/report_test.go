package report

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTable_View(t *testing.T) {
	out := NewTable("Board").
		AddColumn("Name", lipgloss.Left).
		AddColumn("Score", lipgloss.Right).
		AddRow("alice", "10").
		AddRow("bob", "7").
		View()

	assert.Contains(t, out, "Board")
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
}

func TestTable_Empty(t *testing.T) {
	assert.Empty(t, NewTable("x").View())

	out := NewTable("").AddColumn("Wallet", lipgloss.Left).View()
	assert.Contains(t, out, "no rows")
}

func TestRenderCell_Truncates(t *testing.T) {
	out := renderCell("0123456789", 6, lipgloss.Left, lipgloss.NewStyle())
	assert.Contains(t, out, "012...")
}

func TestVerdict(t *testing.T) {
	out := Verdict(governance.EvaluateProposalValidity(10, 2))
	assert.Contains(t, out, "INVALID")
	assert.Contains(t, out, "Only 12 voters (minimum 100 required)")

	out = Verdict(governance.EvaluateProposalValidity(70, 30))
	assert.Contains(t, out, "VALID")
	assert.NotContains(t, out, "INVALID")
}

func TestTraders(t *testing.T) {
	out := Traders([]leaderboard.Trader{{
		Address:     "0x10cC63b5190d519232570c3996E1080859abd8f7",
		TotalVolume: decimal.RequireFromString("12.5"),
		Rank:        1,
		DisplayName: "whale",
	}})
	assert.Contains(t, out, "0x10cC...d8f7")
	assert.Contains(t, out, "12.5000")
	assert.Contains(t, out, "whale")
}

func TestCurve(t *testing.T) {
	out := Curve([]CurveQuote{{Supply: 350_000_000, Price: 0.000206955, ProgressPercent: 50, MarketCap: 72434.25}})
	assert.Contains(t, out, "350000000")
	assert.Contains(t, out, "0.0002069550")
	assert.Contains(t, out, "50.00%")
}
