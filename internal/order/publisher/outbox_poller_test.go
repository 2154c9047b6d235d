package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/repository"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	events       []repository.OutboxEvent
	fetchErr     error
	markErr      error
	processedIDs []int64
}

func (m *mockRepo) CreateOrder(context.Context, *order.Order, []byte) error { return nil }

func (m *mockRepo) GetOrderByID(context.Context, uuid.UUID) (*order.Order, error) {
	return nil, repository.ErrOrderNotFound
}

func (m *mockRepo) ListOrdersByUserID(context.Context, string) ([]*order.Order, error) {
	return nil, nil
}

func (m *mockRepo) GetUnprocessedEvents(context.Context, int) ([]repository.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	ev := m.events
	m.events = nil
	return ev, nil
}

func (m *mockRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processedIDs = append(m.processedIDs, id)
	return nil
}

func (m *mockRepo) Close() error { return nil }

type mockWriter struct {
	writeErr error
	messages []kafka.Message
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func newTestPoller(repo repository.OrderRepository, writer messageWriter) *OutboxPoller {
	return &OutboxPoller{eventTick: time.Millisecond, batchSize: 100, repo: repo, writer: writer}
}

func TestOutboxPoller_PublishesAndMarksProcessed(t *testing.T) {
	repo := &mockRepo{
		events: []repository.OutboxEvent{
			{ID: 1, Payload: []byte(`{"order_id":"ord-1","user_id":"user-1"}`), CreatedAt: time.Now()},
			{ID: 2, Payload: []byte(`{"order_id":"ord-2","user_id":"user-2"}`), CreatedAt: time.Now()},
		},
	}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, "ord-1", string(writer.messages[0].Key))
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, "OrderCompleted", string(writer.messages[0].Headers[0].Value))
	assert.Equal(t, []int64{1, 2}, repo.processedIDs)
}

func TestOutboxPoller_PublishFailureLeavesEventPending(t *testing.T) {
	repo := &mockRepo{
		events: []repository.OutboxEvent{
			{ID: 7, Payload: []byte(`{"order_id":"ord-7"}`), CreatedAt: time.Now()},
		},
	}
	writer := &mockWriter{writeErr: errors.New("broker unavailable")}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, repo.processedIDs, "event must stay pending when publish fails")
}

func TestOutboxPoller_FetchErrorIsHandled(t *testing.T) {
	repo := &mockRepo{fetchErr: errors.New("database connection error")}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.messages)
}

func TestOutboxPoller_RunStopsOnContextCancel(t *testing.T) {
	repo := &mockRepo{
		events: []repository.OutboxEvent{
			{ID: 1, Payload: []byte(`{"order_id":"ord-1"}`), CreatedAt: time.Now()},
		},
	}
	writer := &mockWriter{}
	poller := newTestPoller(repo, writer)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
	require.Len(t, writer.messages, 1)
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, []byte("ord-1"), messageKey([]byte(`{"order_id":"ord-1"}`)))
	assert.Nil(t, messageKey([]byte(`{bad json`)))
	assert.Nil(t, messageKey([]byte(`{"user_id":"u1"}`)))
}
