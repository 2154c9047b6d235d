package publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/order/repository"
	"github.com/segmentio/kafka-go"
)

const orderCompletedTopic = "order-completed"

// messageWriter is the slice of kafka.Writer the poller needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller drains pending order-completed events from the outbox
// table and publishes them to Kafka. An event is marked processed only
// after the write succeeds, so delivery is at-least-once.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      repository.OrderRepository
	writer    messageWriter
}

func NewOutboxPoller(repo repository.OrderRepository, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  orderCompletedTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{eventTick: time.Second, batchSize: 100, repo: repo, writer: w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   messageKey(event.Payload), // order_id for partition ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("OrderCompleted")},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func messageKey(payload []byte) []byte {
	var partial struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &partial); err != nil || partial.OrderID == "" {
		return nil
	}
	return []byte(partial.OrderID)
}
