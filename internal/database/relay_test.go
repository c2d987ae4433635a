package database

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	args := m.Called(ctx, id, err)
	return args.Error(0)
}

func relayEvent(aggregateID string) *OutboxEvent {
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "listing_batch",
		AggregateID:   aggregateID,
		EventType:     "LISTINGS_UPSERTED",
		Payload:       json.RawMessage(`{"store":"jumia","records":2,"written":2}`),
		TargetStream:  DefaultTargetStream,
		CreatedAt:     time.Now(),
	}
}

func newTestRelay(redisClient RedisClient, outbox OutboxRepo) *Relay {
	return NewRelay(outbox, redisClient, slog.Default(), RelayConfig{BatchSize: 10})
}

// streamValues returns the XADD field map the relay builds.
func streamValues(args *redis.XAddArgs) map[string]any {
	v, _ := args.Values.(map[string]any)
	return v
}

func TestRelay_ProcessEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks every event", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := newTestRelay(mockRedis, mockOutbox)

		events := []*OutboxEvent{relayEvent("jumia-1"), relayEvent("jumia-2")}
		mockOutbox.On("GetPending", ctx, 10).Return(events, nil)

		for _, event := range events {
			mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
				return args.Stream == DefaultTargetStream &&
					streamValues(args)["event_type"] == event.EventType &&
					streamValues(args)["aggregate_id"] == event.AggregateID
			})).Return(nil)
			mockOutbox.On("MarkProcessed", ctx, event.ID).Return(nil)
		}

		n, err := relay.processEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("redis failure marks the event failed", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := newTestRelay(mockRedis, mockOutbox)

		event := relayEvent("jumia-3")
		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{event}, nil)
		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("redis connection failed"))
		mockOutbox.On("MarkFailed", ctx, event.ID, mock.MatchedBy(func(err error) bool {
			return err.Error() == "failed to publish to redis: redis connection failed"
		})).Return(nil)

		n, err := relay.processEvents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, n)

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("empty batch skips redis", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := newTestRelay(mockRedis, mockOutbox)

		mockOutbox.On("GetPending", ctx, 10).Return([]*OutboxEvent{}, nil)

		n, err := relay.processEvents(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		mockRedis.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
	})

	t.Run("one failure does not stop the batch", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockOutbox := new(MockOutboxRepository)
		relay := newTestRelay(mockRedis, mockOutbox)

		events := []*OutboxEvent{relayEvent("noon-1"), relayEvent("noon-2")}
		mockOutbox.On("GetPending", ctx, 10).Return(events, nil)

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return streamValues(args)["aggregate_id"] == "noon-1"
		})).Return(errors.New("redis error"))
		mockOutbox.On("MarkFailed", ctx, events[0].ID, mock.Anything).Return(nil)

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return streamValues(args)["aggregate_id"] == "noon-2"
		})).Return(nil)
		mockOutbox.On("MarkProcessed", ctx, events[1].ID).Return(nil)

		n, err := relay.processEvents(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		mockRedis.AssertExpectations(t)
		mockOutbox.AssertExpectations(t)
	})

	t.Run("outbox read failure", func(t *testing.T) {
		mockOutbox := new(MockOutboxRepository)
		relay := newTestRelay(new(MockRedisClient), mockOutbox)

		mockOutbox.On("GetPending", ctx, 10).Return(nil, assert.AnError)

		_, err := relay.processEvents(ctx)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRelay_Publish(t *testing.T) {
	ctx := context.Background()

	decode := func(args *redis.XAddArgs) map[string]any {
		val, ok := streamValues(args)["data"].(string)
		if !ok {
			return nil
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(val), &data); err != nil {
			return nil
		}
		return data
	}

	t.Run("envelope fields", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		relay := newTestRelay(mockRedis, new(MockOutboxRepository))

		event := relayEvent("btech-1")
		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			data := decode(args)
			if data == nil {
				return false
			}
			payload, _ := data["payload"].(map[string]any)
			metadata, _ := data["metadata"].(map[string]any)
			return data["type"] == "LISTINGS_UPSERTED" &&
				data["aggregate_type"] == "listing_batch" &&
				data["aggregate_id"] == "btech-1" &&
				payload["store"] == "jumia" &&
				metadata["source"] == relaySource
		})).Return(nil)

		require.NoError(t, relay.publish(ctx, event))
		mockRedis.AssertExpectations(t)
	})

	t.Run("empty target stream falls back to default", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		relay := newTestRelay(mockRedis, new(MockOutboxRepository))

		event := relayEvent("btech-2")
		event.TargetStream = ""
		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return args.Stream == DefaultTargetStream
		})).Return(nil)

		require.NoError(t, relay.publish(ctx, event))
		mockRedis.AssertExpectations(t)
	})

	t.Run("malformed payload", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		relay := newTestRelay(mockRedis, new(MockOutboxRepository))

		event := relayEvent("btech-3")
		event.Payload = json.RawMessage(`{not json`)

		assert.Error(t, relay.publish(ctx, event))
		mockRedis.AssertNotCalled(t, "XAdd", mock.Anything, mock.Anything)
	})
}

func TestRelay_Start(t *testing.T) {
	mockOutbox := new(MockOutboxRepository)
	relay := NewRelay(mockOutbox, new(MockRedisClient), slog.Default(), RelayConfig{
		PollInterval: 50 * time.Millisecond,
		BatchSize:    10,
	})

	mockOutbox.On("GetPending", mock.Anything, 10).Return([]*OutboxEvent{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- relay.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop on context cancellation")
	}
}
