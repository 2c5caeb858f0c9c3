package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/glimte/mmate-events/internal/reliability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStreamAdder struct {
	mock.Mock
}

func (m *mockStreamAdder) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	args := m.Called(ctx, a)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func TestRedisStreamSink(t *testing.T) {
	ctx := context.Background()

	t.Run("appends schema fields and body", func(t *testing.T) {
		client := &mockStreamAdder{}
		client.On("XAdd", ctx, mock.MatchedBy(func(a *redis.XAddArgs) bool {
			values, ok := a.Values.(map[string]any)
			return ok &&
				a.Stream == "events" &&
				a.MaxLen == 1000 &&
				a.Approx &&
				values["schema"] == "click" &&
				values["version"] == 1 &&
				values["event"] == `{"x":1}`
		})).Return("1-0", nil).Once()

		s := NewRedisStreamSink(client, "events", WithMaxLen(1000))
		err := s.Write(ctx, Record{Key: clickKey, Body: []byte(`{"x":1}`)})

		require.NoError(t, err)
		client.AssertExpectations(t)
		assert.NoError(t, s.Close())
	})

	t.Run("no trimming by default", func(t *testing.T) {
		client := &mockStreamAdder{}
		client.On("XAdd", ctx, mock.MatchedBy(func(a *redis.XAddArgs) bool {
			return a.MaxLen == 0 && !a.Approx
		})).Return("1-0", nil).Once()

		s := NewRedisStreamSink(client, "events")
		require.NoError(t, s.Write(ctx, Record{Key: clickKey}))
		client.AssertExpectations(t)
	})

	t.Run("wraps errors and trips the breaker", func(t *testing.T) {
		client := &mockStreamAdder{}
		client.On("XAdd", ctx, mock.Anything).Return("", errors.New("connection refused")).Once()

		breaker := reliability.NewCircuitBreaker(reliability.WithFailureThreshold(1))
		s := NewRedisStreamSink(client, "events", WithRedisCircuitBreaker(breaker))

		err := s.Write(ctx, Record{Key: clickKey})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, s.Write(ctx, Record{Key: clickKey}), reliability.ErrCircuitOpen)
	})

	t.Run("DialRedisStreamSink rejects bad urls", func(t *testing.T) {
		_, err := DialRedisStreamSink(ctx, "not a url", "events")
		assert.Error(t, err)
	})
}

type pingingAdder struct {
	mockStreamAdder
	pingErr error
}

func (p *pingingAdder) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", p.pingErr)
}

func TestRedisStreamSinkPing(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, NewRedisStreamSink(&mockStreamAdder{}, "events").Ping(ctx))
	assert.NoError(t, NewRedisStreamSink(&pingingAdder{}, "events").Ping(ctx))
	assert.EqualError(t, NewRedisStreamSink(&pingingAdder{pingErr: errors.New("down")}, "events").Ping(ctx), "down")
}
