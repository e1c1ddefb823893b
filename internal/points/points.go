// internal/points/points.go
package points

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"go.uber.org/zap"
)

const (
	// Multiplier scales trading points: points = Multiplier * ln(1 + volume).
	Multiplier = 10.0

	// CommentReward is credited for every paid comment.
	CommentReward = 0.025
)

// Calculate converts trading volume into points. The logarithm damps
// whale volume; non-positive and NaN volume earn nothing.
func Calculate(volume float64) float64 {
	if !(volume > 0) || math.IsInf(volume, 0) {
		return 0
	}
	return math.Max(0, Multiplier*math.Log1p(volume))
}

// VolumeReader reads lifetime trading volume from the contract.
type VolumeReader interface {
	UserVolume(ctx context.Context, wallet string) (chain.Volume, error)
}

// Service maintains the reward ledger.
type Service struct {
	store  storage.PointsStore
	volume VolumeReader
	bus    events.Publisher
	logger *zap.Logger
	now    func() time.Time

	// Ledger updates are read-modify-write.
	mu sync.Mutex
}

// NewService wires the ledger to its store and the chain.
func NewService(store storage.PointsStore, volume VolumeReader, bus events.Publisher, logger *zap.Logger) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	return &Service{
		store:  store,
		volume: volume,
		bus:    bus,
		logger: logger.Named("points"),
		now:    time.Now,
	}
}

func (s *Service) existing(ctx context.Context, wallet string) (*models.UserPoints, error) {
	rec, err := s.store.GetPoints(ctx, wallet)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.UserPoints{WalletAddress: wallet}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	return rec, nil
}

// Refresh recomputes trading points of wallet from on-chain volume while
// keeping the comment points already earned.
func (s *Service) Refresh(ctx context.Context, wallet string) (*models.UserPoints, error) {
	wallet = models.NormalizeAddress(wallet)

	vol, err := s.volume.UserVolume(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read volume of %s: %w", wallet, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.existing(ctx, wallet)
	if err != nil {
		return nil, err
	}

	total := vol.Total()
	totalF, _ := total.Float64()

	rec.TotalBuyVolume = vol.Buy
	rec.TotalSellVolume = vol.Sell
	rec.TotalVolume = total
	rec.TradingPoints = Calculate(totalF)
	rec.Points = rec.TradingPoints + rec.CommentPoints
	rec.LastUpdated = s.now()

	if err := s.store.UpsertPoints(ctx, rec); err != nil {
		return nil, fmt.Errorf("save points: %w", err)
	}

	s.logger.Debug("Points refreshed",
		zap.String("wallet", wallet),
		zap.String("total_volume", total.String()),
		zap.Float64("trading_points", rec.TradingPoints),
		zap.Float64("points", rec.Points))
	s.publish(rec)
	return rec, nil
}

// AwardComment credits CommentReward to wallet.
func (s *Service) AwardComment(ctx context.Context, wallet string) (*models.UserPoints, error) {
	wallet = models.NormalizeAddress(wallet)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.existing(ctx, wallet)
	if err != nil {
		return nil, err
	}
	rec.CommentPoints += CommentReward
	rec.Points = rec.TradingPoints + rec.CommentPoints
	rec.LastUpdated = s.now()

	if err := s.store.UpsertPoints(ctx, rec); err != nil {
		return nil, fmt.Errorf("save points: %w", err)
	}

	s.logger.Info("Comment points awarded",
		zap.String("wallet", wallet),
		zap.Float64("comment_points", rec.CommentPoints))
	s.publish(rec)
	return rec, nil
}

// Get returns the stored ledger of wallet, computing it from the chain on
// first access.
func (s *Service) Get(ctx context.Context, wallet string) (*models.UserPoints, error) {
	wallet = models.NormalizeAddress(wallet)

	rec, err := s.store.GetPoints(ctx, wallet)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load points: %w", err)
	}
	return s.Refresh(ctx, wallet)
}

// Subscribe credits comment points for every CommentPosted event on bus.
func (s *Service) Subscribe(bus *events.Bus) events.Subscription {
	return bus.SubscribeFunc(events.CommentPosted, func(ctx context.Context, e events.Event) error {
		posted, ok := e.(events.CommentPostedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		_, err := s.AwardComment(ctx, posted.Author)
		return err
	})
}

func (s *Service) publish(rec *models.UserPoints) {
	err := s.bus.Publish(events.PointsUpdatedEvent{
		BaseEvent: events.NewBase(events.PointsUpdated),
		Wallet:    rec.WalletAddress,
		Points:    rec.Points,
	})
	if err != nil {
		s.logger.Debug("Points event dropped", zap.Error(err))
	}
}
