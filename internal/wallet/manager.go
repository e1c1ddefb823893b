// internal/wallet/manager.go
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultDialTimeout = 15 * time.Second

var (
	// ErrWrongNetwork is returned when the provider serves another chain.
	ErrWrongNetwork = errors.New("provider is on the wrong network")

	// ErrNotConnected is returned by Current before a successful Connect.
	ErrNotConnected = errors.New("wallet provider not connected")
)

// Session is a live provider connection.
type Session interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Dialer opens a new Session.
type Dialer[S Session] func(ctx context.Context) (S, error)

// Manager owns one provider connection. Concurrent Connect calls share a
// single in-flight negotiation; a failed negotiation leaves the slot empty
// so the next call starts over.
type Manager[S Session] struct {
	dial        Dialer[S]
	chainID     *big.Int
	dialTimeout time.Duration
	logger      *zap.Logger

	group singleflight.Group

	mu        sync.RWMutex
	session   S
	connected bool
}

// NewManager creates a manager that only accepts sessions on chainID.
// A zero chainID disables the network check.
func NewManager[S Session](dial Dialer[S], chainID int64, logger *zap.Logger) *Manager[S] {
	return &Manager[S]{
		dial:        dial,
		chainID:     big.NewInt(chainID),
		dialTimeout: DefaultDialTimeout,
		logger:      logger.Named("wallet"),
	}
}

// SetDialTimeout bounds each negotiation.
func (m *Manager[S]) SetDialTimeout(d time.Duration) {
	if d > 0 {
		m.dialTimeout = d
	}
}

// Connect returns the cached session or negotiates a new one.
func (m *Manager[S]) Connect(ctx context.Context) (S, error) {
	if s, ok := m.cached(); ok {
		return s, nil
	}

	ch := m.group.DoChan("connect", func() (interface{}, error) {
		if s, ok := m.cached(); ok {
			return s, nil
		}
		// The negotiation outlives any single caller's cancellation.
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.dialTimeout)
		defer cancel()
		return m.negotiate(dialCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero S
			return zero, res.Err
		}
		if res.Shared {
			m.logger.Debug("Joined in-flight connection")
		}
		return res.Val.(S), nil
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}

func (m *Manager[S]) negotiate(ctx context.Context) (S, error) {
	var zero S

	m.logger.Info("Connecting to provider")
	s, err := m.dial(ctx)
	if err != nil {
		m.logger.Warn("Provider dial failed", zap.Error(err))
		return zero, fmt.Errorf("dial provider: %w", err)
	}

	if m.chainID.Sign() != 0 {
		id, err := s.ChainID(ctx)
		if err != nil {
			s.Close()
			return zero, fmt.Errorf("query chain id: %w", err)
		}
		if id.Cmp(m.chainID) != 0 {
			s.Close()
			return zero, fmt.Errorf("%w: got %s, want %s", ErrWrongNetwork, id, m.chainID)
		}
	}

	m.mu.Lock()
	m.session = s
	m.connected = true
	m.mu.Unlock()

	m.logger.Info("Provider connected", zap.String("chain_id", m.chainID.String()))
	return s, nil
}

func (m *Manager[S]) cached() (S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, m.connected
}

// Current returns the live session without negotiating.
func (m *Manager[S]) Current() (S, error) {
	if s, ok := m.cached(); ok {
		return s, nil
	}
	var zero S
	return zero, ErrNotConnected
}

// Disconnect closes and forgets the session.
func (m *Manager[S]) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return
	}
	m.session.Close()
	var zero S
	m.session = zero
	m.connected = false
	m.logger.Info("Provider disconnected")
}
