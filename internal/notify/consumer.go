package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/anirudh2403/Seat-Reservation-System/internal/order/domain"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/idempotency"
	"github.com/anirudh2403/Seat-Reservation-System/pkg/tracing"
)

// Consumer turns order lifecycle events into buyer notifications. Offsets are
// deduplicated through redis so a rebalance does not double-notify.
type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	sender Sender
	idem   *idempotency.Store
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, sender Sender, idem *idempotency.Store) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		sender: sender,
		idem:   idem,
		tracer: otel.Tracer("notify-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent")

		eventType := headerValue(msg.Headers, "event_type")
		if err := c.handle(msgCtx, eventType, msg.Value); err != nil {
			c.log.Error("notify failed", "event_type", eventType, "err", err)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case "OrderConfirmed":
		var e domain.OrderConfirmed
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		body := fmt.Sprintf("Your order %s is confirmed. Total: %d paise.", e.OrderID, e.TotalPaise)
		return c.sender.Send(ctx, e.BuyerID, "Booking confirmed", body)

	case "OrderCancelled":
		var e domain.OrderCancelled
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		body := fmt.Sprintf("Your order %s was cancelled: %s.", e.OrderID, e.Reason)
		if e.Refunded {
			body += " Your payment has been refunded."
		}
		return c.sender.Send(ctx, e.BuyerID, "Booking cancelled", body)

	case "OrderFailed":
		var e domain.OrderFailed
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		body := fmt.Sprintf("We could not book order %s: %s.", e.OrderID, e.Reason)
		return c.sender.Send(ctx, e.BuyerID, "Booking failed", body)

	case "OrderCreated":
		// no buyer notification until the saga settles
		return nil
	}

	c.log.Warn("unknown event type", "event_type", eventType)
	return nil
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
