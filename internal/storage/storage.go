package storage

import (
	"context"
	"errors"
	"time"

	"ticketSale/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	// ErrTicketConflict means the ticket picked inside a transaction was no
	// longer available when the purchase was written. The transaction has been
	// rolled back.
	ErrTicketConflict = errors.New("ticket no longer available")
)

// InventoryTx is the view of the inventory inside a single purchase
// transaction. Both calls must be made through the same InventoryTx.
type InventoryTx interface {
	// FindAvailableTicket returns the available ticket with the lowest seat
	// position, or nil when the event has none left.
	FindAvailableTicket(ctx context.Context, eventID int64) (*models.Ticket, error)
	// CommitPurchase marks the ticket sold to buyerID and decrements the
	// event's remaining count. Returns ErrTicketConflict if the ticket is not
	// available anymore.
	CommitPurchase(ctx context.Context, ticketID int64, buyerID string, at time.Time) error
}
