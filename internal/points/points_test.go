// internal/points/points_test.go
package points

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockVolume struct {
	mock.Mock
}

func (m *mockVolume) UserVolume(ctx context.Context, wallet string) (chain.Volume, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(chain.Volume), args.Error(1)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		volume float64
		want   float64
	}{
		{0, 0},
		{-5, 0},
		{math.NaN(), 0},
		{1, 10 * math.Log(2)},
		{100, 10 * math.Log(101)},
		{math.E - 1, 10},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Calculate(tt.volume), 1e-9, "volume %v", tt.volume)
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	prev := 0.0
	for v := 0.5; v < 1e6; v *= 3 {
		p := Calculate(v)
		assert.Greater(t, p, prev)
		prev = p
	}
}

func TestService_RefreshKeepsCommentPoints(t *testing.T) {
	store := memory.New()
	vol := &mockVolume{}
	vol.On("UserVolume", mock.Anything, "0xabc").Return(chain.Volume{
		Buy:  decimal.NewFromInt(60),
		Sell: decimal.NewFromInt(40),
	}, nil)

	svc := NewService(store, vol, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.AwardComment(ctx, "0xABC")
	require.NoError(t, err)
	_, err = svc.AwardComment(ctx, "0xabc")
	require.NoError(t, err)

	rec, err := svc.Refresh(ctx, "0xAbC")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", rec.WalletAddress)
	assert.True(t, decimal.NewFromInt(100).Equal(rec.TotalVolume))
	assert.InDelta(t, 10*math.Log(101), rec.TradingPoints, 1e-9)
	assert.InDelta(t, 0.05, rec.CommentPoints, 1e-12)
	assert.InDelta(t, rec.TradingPoints+0.05, rec.Points, 1e-9)
	vol.AssertExpectations(t)
}

func TestService_RefreshVolumeError(t *testing.T) {
	store := memory.New()
	vol := &mockVolume{}
	vol.On("UserVolume", mock.Anything, "0xabc").Return(chain.Volume{}, errors.New("rpc down"))

	svc := NewService(store, vol, nil, zap.NewNop())
	_, err := svc.AwardComment(context.Background(), "0xabc")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), "0xabc")
	require.Error(t, err)

	// The ledger is untouched by a failed read.
	rec, err := store.GetPoints(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.InDelta(t, CommentReward, rec.Points, 1e-12)
}

func TestService_GetComputesOnFirstAccess(t *testing.T) {
	store := memory.New()
	vol := &mockVolume{}
	vol.On("UserVolume", mock.Anything, "0xnew").Return(chain.Volume{
		Buy:  decimal.RequireFromString("1.5"),
		Sell: decimal.Zero,
	}, nil).Once()

	svc := NewService(store, vol, nil, zap.NewNop())

	rec, err := svc.Get(context.Background(), "0xNEW")
	require.NoError(t, err)
	assert.InDelta(t, 10*math.Log(2.5), rec.Points, 1e-9)

	// Second read is served from the store.
	again, err := svc.Get(context.Background(), "0xnew")
	require.NoError(t, err)
	assert.InDelta(t, rec.Points, again.Points, 1e-12)
	vol.AssertExpectations(t)
}

func TestService_SubscribeAwardsCommentPoints(t *testing.T) {
	store := memory.New()
	bus := events.NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	svc := NewService(store, &mockVolume{}, bus, zap.NewNop())
	svc.Subscribe(bus)

	require.NoError(t, bus.Publish(events.CommentPostedEvent{
		BaseEvent:    events.NewBase(events.CommentPosted),
		TokenAddress: "0xtoken",
		Author:       "0xAuthor",
	}))

	assert.Eventually(t, func() bool {
		rec, err := store.GetPoints(context.Background(), "0xauthor")
		return err == nil && rec.CommentPoints > 0
	}, time.Second, 5*time.Millisecond)
}
