package models

import (
	"fmt"
	"time"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "available"
	TicketSold      TicketStatus = "sold"
)

type Ticket struct {
	ID           int64        `json:"id" db:"ticket_id"`
	EventID      int64        `json:"event_id" db:"event_id"`
	SeatPosition int          `json:"-" db:"seat_position"`
	SeatLabel    string       `json:"seat_label" db:"seat_label"`
	Price        float64      `json:"price" db:"price"`
	Status       TicketStatus `json:"status" db:"status"`
	BuyerID      *string      `json:"-" db:"buyer_id"`
	PurchaseTime *time.Time   `json:"purchase_time,omitempty" db:"purchase_time"`
}

// Allocation is the result of a successful purchase.
type Allocation struct {
	TicketID     int64     `json:"ticket_id"`
	EventID      int64     `json:"event_id"`
	SeatLabel    string    `json:"seat_label"`
	Price        float64   `json:"price"`
	BuyerID      string    `json:"buyer_id"`
	PurchaseTime time.Time `json:"purchase_time"`
}

// SeatLabel returns the label of the seat at position (1-based) for an event
// holding total seats. Labels are zero padded to at least three digits so that
// they sort the same way lexically and numerically.
func SeatLabel(position, total int) string {
	width := len(fmt.Sprint(total))
	if width < 3 {
		width = 3
	}

	return fmt.Sprintf("SEAT-%0*d", width, position)
}
