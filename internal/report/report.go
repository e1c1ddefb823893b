// internal/report/report.go
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/logger"
	"github.com/memelaunch/launchpad/internal/tokens"
)

// CurveQuote describes one point on the bonding curve.
type CurveQuote struct {
	Supply          float64
	Price           float64
	ProgressPercent float64
	MarketCap       float64
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 10, 64)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Curve renders quotes for several supplies.
func Curve(quotes []CurveQuote) string {
	t := NewTable("Bonding curve").
		AddColumn("Supply", lipgloss.Right).
		AddColumn("Price", lipgloss.Right).
		AddColumn("Progress", lipgloss.Right).
		AddColumn("Market cap", lipgloss.Right)
	for _, q := range quotes {
		t.AddRow(
			strconv.FormatFloat(q.Supply, 'f', 0, 64),
			formatPrice(q.Price),
			fmt.Sprintf("%.2f%%", q.ProgressPercent),
			formatAmount(q.MarketCap),
		)
	}
	return t.View()
}

// TokenQuote renders the live quote of a listed token.
func TokenQuote(q *tokens.Quote) string {
	state := Status(!q.Completed, "on curve", "graduated")
	t := NewTable("Token " + logger.ShortenAddress(q.ContractAddress) + "  " + state).
		AddColumn("Supply", lipgloss.Right).
		AddColumn("Price", lipgloss.Right).
		AddColumn("Progress", lipgloss.Right).
		AddColumn("Market cap", lipgloss.Right)
	t.AddRow(
		strconv.FormatUint(q.CurrentSupply, 10),
		formatPrice(q.Price),
		fmt.Sprintf("%.2f%%", q.ProgressPercent),
		formatAmount(q.MarketCap),
	)
	return t.View()
}

// Verdict renders a validity verdict with its reasons.
func Verdict(v governance.Verdict) string {
	lines := []string{
		Status(v.IsValid, "VALID", "INVALID"),
		fmt.Sprintf("voters %d, winning side %.1f%%", v.TotalVoters, v.WinningPercentage),
	}
	for _, r := range v.Reasons {
		lines = append(lines, mutedStyle.Render("- "+r))
	}
	return borderStyle.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// Traders renders the top traders board.
func Traders(rows []leaderboard.Trader) string {
	t := NewTable("Top traders").
		AddColumn("#", lipgloss.Right).
		AddColumn("Wallet", lipgloss.Left).
		AddColumn("Name", lipgloss.Left).
		AddColumn("Volume", lipgloss.Right)
	for _, r := range rows {
		t.AddRow(strconv.Itoa(r.Rank), logger.ShortenAddress(r.Address), r.DisplayName, r.TotalVolume.StringFixed(4))
	}
	return t.View()
}

// Active renders the most active board.
func Active(rows []leaderboard.ActiveUser) string {
	t := NewTable("Most active").
		AddColumn("#", lipgloss.Right).
		AddColumn("Wallet", lipgloss.Left).
		AddColumn("Name", lipgloss.Left).
		AddColumn("Points", lipgloss.Right)
	for _, r := range rows {
		t.AddRow(strconv.Itoa(r.Rank), logger.ShortenAddress(r.Address), r.DisplayName, formatAmount(r.Points))
	}
	return t.View()
}
