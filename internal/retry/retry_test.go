// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_ReturnsFirstReadyValue(t *testing.T) {
	calls := 0
	v, err := Poll(context.Background(), func(context.Context) (*string, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		s := "token"
		return &s, nil
	}, Options[*string]{
		Attempts: 5,
		Delay:    time.Millisecond,
		NotReady: func(s *string) bool { return s == nil },
	})

	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "token", *v)
	assert.Equal(t, 3, calls)
}

func TestPoll_BudgetExhausted(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, nil
	}, Options[int]{
		Attempts: 3,
		Delay:    time.Millisecond,
		NotReady: func(n int) bool { return n == 0 },
	})

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 3, calls)
}

func TestPoll_RetriesErrors(t *testing.T) {
	calls := 0
	v, err := Poll(context.Background(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("replica lag")
		}
		return 42, nil
	}, Options[int]{Attempts: 2, Delay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPoll_PermanentStopsImmediately(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	_, err := Poll(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(boom)
	}, Options[int]{Attempts: 5, Delay: time.Millisecond})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPoll_NotifyBetweenAttempts(t *testing.T) {
	var waits []time.Duration
	_, _ = Poll(context.Background(), func(context.Context) (int, error) {
		return 0, nil
	}, Options[int]{
		Attempts: 3,
		Delay:    time.Millisecond,
		NotReady: func(int) bool { return true },
		Notify:   func(_ error, d time.Duration) { waits = append(waits, d) },
	})

	assert.Len(t, waits, 2)
}
