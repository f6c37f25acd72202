package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ticketSale/internal/models"

	"github.com/segmentio/kafka-go"
)

const EventTypeTicketPurchased = "ticket_purchased"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends purchase notifications. Messages are keyed by event id so
// purchases of one event stay ordered within a partition.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

type TicketPurchased struct {
	Type         string    `json:"type"`
	TicketID     int64     `json:"ticket_id"`
	EventID      int64     `json:"event_id"`
	SeatLabel    string    `json:"seat_label"`
	Price        float64   `json:"price"`
	BuyerID      string    `json:"buyer_id"`
	PurchaseTime time.Time `json:"purchase_time"`
}

func (p *Publisher) NotifyPurchase(ctx context.Context, allocation models.Allocation) error {
	const op = "broker.kafka.NotifyPurchase"

	payload, err := json.Marshal(TicketPurchased{
		Type:         EventTypeTicketPurchased,
		TicketID:     allocation.TicketID,
		EventID:      allocation.EventID,
		SeatLabel:    allocation.SeatLabel,
		Price:        allocation.Price,
		BuyerID:      allocation.BuyerID,
		PurchaseTime: allocation.PurchaseTime,
	})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(allocation.EventID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeTicketPurchased)},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
