// internal/leaderboard/leaderboard.go
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultLimit is the size of each board.
	DefaultLimit = 25

	// StaleAfter is the age at which a cached board is rebuilt.
	StaleAfter = 24 * time.Hour

	chainConcurrency = 8
)

// Kind names a board.
type Kind string

const (
	TopTraders Kind = "top_traders"
	MostActive Kind = "most_active"
)

// ErrUnknownKind is returned for board names other than the two above.
var ErrUnknownKind = errors.New("unknown leaderboard")

// ParseKind validates a board name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case TopTraders, MostActive:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Trader is a row of the top traders board.
type Trader struct {
	Address     string          `json:"address"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	BuyVolume   decimal.Decimal `json:"buyVolume"`
	SellVolume  decimal.Decimal `json:"sellVolume"`
	Rank        int             `json:"rank"`
	DisplayName string          `json:"displayName,omitempty"`
}

// ActiveUser is a row of the most active board.
type ActiveUser struct {
	Address       string  `json:"address"`
	Points        float64 `json:"points"`
	TradingPoints float64 `json:"tradingPoints"`
	CommentPoints float64 `json:"commentPoints"`
	Rank          int     `json:"rank"`
	DisplayName   string  `json:"displayName,omitempty"`
}

// RefreshResult reports a rebuild.
type RefreshResult struct {
	TopTraders int       `json:"topTraders"`
	MostActive int       `json:"mostActive"`
	Timestamp  time.Time `json:"timestamp"`
}

// VolumeSource enumerates traders on chain.
type VolumeSource interface {
	AllTokens(ctx context.Context) ([]string, error)
	TokenHolders(ctx context.Context, token string) ([]string, error)
	UserVolume(ctx context.Context, wallet string) (chain.Volume, error)
}

// Service builds and caches the boards.
type Service struct {
	store  storage.PointsStore
	cache  Cache
	source VolumeSource
	bus    events.Publisher
	logger *zap.Logger
	now    func() time.Time

	refreshMu sync.Mutex
	// lazy collapses concurrent stale reads into one rebuild.
	lazy singleflight.Group
}

// NewService wires the boards. source may be nil; ChainTopTraders then fails.
func NewService(store storage.PointsStore, cache Cache, source VolumeSource, bus events.Publisher, logger *zap.Logger) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	return &Service{
		store:  store,
		cache:  cache,
		source: source,
		bus:    bus,
		logger: logger.Named("leaderboard"),
		now:    time.Now,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// TopTraders ranks wallets with non-zero volume by total volume.
func (s *Service) TopTraders(ctx context.Context, limit int) ([]Trader, error) {
	rows, err := s.store.TopByVolume(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("load traders: %w", err)
	}
	names, err := s.displayNames(ctx, rows)
	if err != nil {
		return nil, err
	}

	traders := make([]Trader, len(rows))
	for i, r := range rows {
		traders[i] = Trader{
			Address:     r.WalletAddress,
			TotalVolume: r.TotalVolume,
			BuyVolume:   r.TotalBuyVolume,
			SellVolume:  r.TotalSellVolume,
			Rank:        i + 1,
			DisplayName: names[r.WalletAddress],
		}
	}
	return traders, nil
}

// MostActive ranks wallets by total points.
func (s *Service) MostActive(ctx context.Context, limit int) ([]ActiveUser, error) {
	rows, err := s.store.TopByPoints(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	names, err := s.displayNames(ctx, rows)
	if err != nil {
		return nil, err
	}

	users := make([]ActiveUser, len(rows))
	for i, r := range rows {
		users[i] = ActiveUser{
			Address:       r.WalletAddress,
			Points:        r.Points,
			TradingPoints: r.TradingPoints,
			CommentPoints: r.CommentPoints,
			Rank:          i + 1,
			DisplayName:   names[r.WalletAddress],
		}
	}
	return users, nil
}

func (s *Service) displayNames(ctx context.Context, rows []*models.UserPoints) (map[string]string, error) {
	if len(rows) == 0 {
		return map[string]string{}, nil
	}
	addrs := make([]string, len(rows))
	for i, r := range rows {
		addrs[i] = r.WalletAddress
	}
	names, err := s.store.DisplayNames(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("load display names: %w", err)
	}
	return names, nil
}

// ChainTopTraders builds the traders board straight from the contract:
// every holder of every token, ranked by on-chain volume. Tokens whose
// holder list cannot be read are skipped.
func (s *Service) ChainTopTraders(ctx context.Context, limit int) ([]Trader, error) {
	if s.source == nil {
		return nil, errors.New("chain source not configured")
	}
	tokens, err := s.source.AllTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	var (
		mu      sync.Mutex
		holders = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chainConcurrency)
	for _, token := range tokens {
		g.Go(func() error {
			hs, err := s.source.TokenHolders(gctx, token)
			if err != nil {
				s.logger.Warn("Skipping token holders", zap.String("token", token), zap.Error(err))
				return nil
			}
			mu.Lock()
			for _, h := range hs {
				holders[models.NormalizeAddress(h)] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(holders))
	for h := range holders {
		addrs = append(addrs, h)
	}
	sort.Strings(addrs)

	volumes := make([]chain.Volume, len(addrs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(chainConcurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			v, err := s.source.UserVolume(gctx, addr)
			if err != nil {
				return fmt.Errorf("volume of %s: %w", addr, err)
			}
			volumes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	traders := make([]Trader, 0, len(addrs))
	for i, addr := range addrs {
		total := volumes[i].Total()
		if !total.IsPositive() {
			continue
		}
		traders = append(traders, Trader{
			Address:     addr,
			TotalVolume: total,
			BuyVolume:   volumes[i].Buy,
			SellVolume:  volumes[i].Sell,
		})
	}
	sort.SliceStable(traders, func(i, j int) bool {
		return traders[i].TotalVolume.GreaterThan(traders[j].TotalVolume)
	})
	if n := clampLimit(limit); len(traders) > n {
		traders = traders[:n]
	}
	for i := range traders {
		traders[i].Rank = i + 1
	}

	s.logger.Debug("Chain leaderboard built",
		zap.Int("tokens", len(tokens)),
		zap.Int("holders", len(addrs)),
		zap.Int("traders", len(traders)))
	return traders, nil
}

// Refresh rebuilds both boards concurrently and caches them.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var (
		traders []Trader
		active  []ActiveUser
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		traders, err = s.TopTraders(gctx, DefaultLimit)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.MostActive(gctx, DefaultLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return RefreshResult{}, fmt.Errorf("build leaderboards: %w", err)
	}

	now := s.now()
	if err := s.save(ctx, TopTraders, traders, now); err != nil {
		return RefreshResult{}, err
	}
	if err := s.save(ctx, MostActive, active, now); err != nil {
		return RefreshResult{}, err
	}

	res := RefreshResult{TopTraders: len(traders), MostActive: len(active), Timestamp: now}
	s.logger.Info("Leaderboard refreshed",
		zap.Int("top_traders", res.TopTraders),
		zap.Int("most_active", res.MostActive))

	if err := s.bus.Publish(events.LeaderboardRefreshedEvent{
		BaseEvent:  events.NewBase(events.LeaderboardRefreshed),
		TopTraders: res.TopTraders,
		MostActive: res.MostActive,
	}); err != nil {
		s.logger.Debug("Refresh event dropped", zap.Error(err))
	}
	return res, nil
}

func (s *Service) save(ctx context.Context, kind Kind, rows interface{}, at time.Time) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := s.cache.Save(ctx, &Snapshot{Kind: kind, Data: raw, LastUpdated: at}); err != nil {
		return fmt.Errorf("cache %s: %w", kind, err)
	}
	return nil
}

// Cached returns the cached board without rebuilding it.
func (s *Service) Cached(ctx context.Context, kind Kind) (*Snapshot, error) {
	return s.cache.Load(ctx, kind)
}

// ShouldRefresh reports whether a board last built at lastUpdated must be
// rebuilt at now. A zero lastUpdated always needs a rebuild.
func ShouldRefresh(lastUpdated, now time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	return now.Sub(lastUpdated) >= StaleAfter
}

// Get returns the cached board, rebuilding missing or stale boards first.
func (s *Service) Get(ctx context.Context, kind Kind) (*Snapshot, error) {
	snap, err := s.cache.Load(ctx, kind)
	switch {
	case errors.Is(err, ErrCacheMiss):
	case err != nil:
		return nil, err
	case !ShouldRefresh(snap.LastUpdated, s.now()):
		return snap, nil
	}

	ch := s.lazy.DoChan("refresh", func() (interface{}, error) {
		return s.Refresh(context.WithoutCancel(ctx))
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := res.Err; err != nil {
		if snap != nil {
			s.logger.Warn("Serving stale leaderboard", zap.String("kind", string(kind)), zap.Error(err))
			return snap, nil
		}
		return nil, err
	}
	return s.cache.Load(ctx, kind)
}

// Run rebuilds the boards every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Scheduled refresh failed", zap.Error(err))
			}
		}
	}
}
