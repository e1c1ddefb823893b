// internal/wallet/manager_test.go
package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	chainID int64
	closed  atomic.Bool
}

func (f *fakeSession) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }
func (f *fakeSession) Close()                                    { f.closed.Store(true) }

func TestManager_ConcurrentConnectSharesNegotiation(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})

	m := NewManager(func(context.Context) (*fakeSession, error) {
		dials.Add(1)
		<-release
		return &fakeSession{chainID: 13579}, nil
	}, 13579, zap.NewNop())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*fakeSession, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Connect(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}

	// Cached afterwards.
	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], s)
	assert.Equal(t, int32(1), dials.Load())
}

func TestManager_FailureClearsSlot(t *testing.T) {
	var dials atomic.Int32
	m := NewManager(func(context.Context) (*fakeSession, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("user rejected")
		}
		return &fakeSession{chainID: 1}, nil
	}, 1, zap.NewNop())

	_, err := m.Connect(context.Background())
	require.Error(t, err)

	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNotConnected)

	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Equal(t, int32(2), dials.Load())
}

func TestManager_WrongNetwork(t *testing.T) {
	session := &fakeSession{chainID: 1}
	m := NewManager(func(context.Context) (*fakeSession, error) {
		return session, nil
	}, 13579, zap.NewNop())

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWrongNetwork)
	assert.True(t, session.closed.Load())
}

func TestManager_Disconnect(t *testing.T) {
	session := &fakeSession{chainID: 5}
	m := NewManager(func(context.Context) (*fakeSession, error) {
		return session, nil
	}, 5, zap.NewNop())

	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	m.Disconnect()
	assert.True(t, session.closed.Load())
	_, err = m.Current()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestManager_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m := NewManager(func(context.Context) (*fakeSession, error) {
		<-release
		return &fakeSession{}, nil
	}, 0, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
