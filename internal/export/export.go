package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Options configures an export.
type Options struct {
	Format    Format
	OutputDir string
	// MinRank and MaxRank bound the exported rows; zero means no bound.
	MinRank int
	MaxRank int
}

// Exporter writes leaderboard boards to disk.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger, now: time.Now}
}

// TraderSummary aggregates an exported top traders board.
type TraderSummary struct {
	Rows            int             `json:"rows"`
	TotalVolume     decimal.Decimal `json:"total_volume"`
	TotalBuyVolume  decimal.Decimal `json:"total_buy_volume"`
	TotalSellVolume decimal.Decimal `json:"total_sell_volume"`
}

// ActiveSummary aggregates an exported most active board.
type ActiveSummary struct {
	Rows               int     `json:"rows"`
	TotalPoints        float64 `json:"total_points"`
	TotalTradingPoints float64 `json:"total_trading_points"`
	TotalCommentPoints float64 `json:"total_comment_points"`
}

// ExportTraders writes the top traders board and returns the file path.
func (e *Exporter) ExportTraders(rows []leaderboard.Trader, opts Options) (string, error) {
	var filtered []leaderboard.Trader
	for _, r := range rows {
		if inRange(r.Rank, opts) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return "", fmt.Errorf("no traders match the export criteria")
	}

	summary := TraderSummary{Rows: len(filtered)}
	records := make([][]string, 0, len(filtered))
	for _, r := range filtered {
		summary.TotalVolume = summary.TotalVolume.Add(r.TotalVolume)
		summary.TotalBuyVolume = summary.TotalBuyVolume.Add(r.BuyVolume)
		summary.TotalSellVolume = summary.TotalSellVolume.Add(r.SellVolume)
		records = append(records, []string{
			strconv.Itoa(r.Rank), r.Address, r.DisplayName,
			r.TotalVolume.String(), r.BuyVolume.String(), r.SellVolume.String(),
		})
	}

	header := []string{"rank", "address", "display_name", "total_volume", "buy_volume", "sell_volume"}
	return e.write(leaderboard.TopTraders, opts, header, records, filtered, summary)
}

// ExportActive writes the most active board and returns the file path.
func (e *Exporter) ExportActive(rows []leaderboard.ActiveUser, opts Options) (string, error) {
	var filtered []leaderboard.ActiveUser
	for _, r := range rows {
		if inRange(r.Rank, opts) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return "", fmt.Errorf("no users match the export criteria")
	}

	summary := ActiveSummary{Rows: len(filtered)}
	records := make([][]string, 0, len(filtered))
	for _, r := range filtered {
		summary.TotalPoints += r.Points
		summary.TotalTradingPoints += r.TradingPoints
		summary.TotalCommentPoints += r.CommentPoints
		records = append(records, []string{
			strconv.Itoa(r.Rank), r.Address, r.DisplayName,
			formatFloat(r.Points), formatFloat(r.TradingPoints), formatFloat(r.CommentPoints),
		})
	}

	header := []string{"rank", "address", "display_name", "points", "trading_points", "comment_points"}
	return e.write(leaderboard.MostActive, opts, header, records, filtered, summary)
}

func (e *Exporter) write(kind leaderboard.Kind, opts Options, header []string, records [][]string, rows, summary interface{}) (string, error) {
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	now := e.now()
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_%s.%s", kind, now.Format("20060102_150405"), opts.Format))

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(path, header, records)
	case FormatJSON:
		err = writeJSON(path, struct {
			Board      leaderboard.Kind `json:"board"`
			ExportTime time.Time        `json:"export_time"`
			Rows       interface{}      `json:"rows"`
			Summary    interface{}      `json:"summary"`
		}{kind, now, rows, summary})
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Leaderboard exported",
		zap.String("board", string(kind)),
		zap.String("file", path),
		zap.Int("count", len(records)),
		zap.String("format", string(opts.Format)))
	return path, nil
}

func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func inRange(rank int, opts Options) bool {
	if opts.MinRank > 0 && rank < opts.MinRank {
		return false
	}
	if opts.MaxRank > 0 && rank > opts.MaxRank {
		return false
	}
	return true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
