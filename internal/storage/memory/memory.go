package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ticketSale/internal/models"
	"ticketSale/internal/storage"
)

// Storage keeps events and tickets in process memory. Purchase transactions
// stage their writes and apply them under the write lock, so readers never
// see a sold ticket without the matching remaining count.
type Storage struct {
	mu sync.RWMutex

	lastEventID  int64
	lastTicketID int64

	events  map[int64]*models.Event
	tickets map[int64][]*models.Ticket // by event, ordered by seat position
	byID    map[int64]*models.Ticket
}

func New() *Storage {
	return &Storage{
		events:  make(map[int64]*models.Event),
		tickets: make(map[int64][]*models.Ticket),
		byID:    make(map[int64]*models.Ticket),
	}
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) CreateEvent(_ context.Context, event models.NewEvent) (int64, error) {
	const op = "storage.memory.CreateEvent"

	if event.NumTickets <= 0 {
		return 0, fmt.Errorf("%s: event needs at least one ticket", op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastEventID++
	id := s.lastEventID

	s.events[id] = &models.Event{
		ID:               id,
		Title:            event.Title,
		Description:      event.Description,
		StartTime:        event.StartTime,
		EndTime:          event.EndTime,
		Address:          event.Address,
		OrganizerID:      event.OrganizerID,
		RemainingTickets: event.NumTickets,
	}

	tickets := make([]*models.Ticket, 0, event.NumTickets)
	for i := 1; i <= event.NumTickets; i++ {
		s.lastTicketID++
		t := &models.Ticket{
			ID:           s.lastTicketID,
			EventID:      id,
			SeatPosition: i,
			SeatLabel:    models.SeatLabel(i, event.NumTickets),
			Price:        event.TicketPrice,
			Status:       models.TicketAvailable,
		}
		tickets = append(tickets, t)
		s.byID[t.ID] = t
	}
	s.tickets[id] = tickets

	return id, nil
}

func (s *Storage) ListEvents(_ context.Context) ([]models.EventSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.EventSummary, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, e.Summary())
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})

	return events, nil
}

func (s *Storage) GetEvent(_ context.Context, id int64) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, storage.ErrEventNotFound
	}

	event := *e
	return &event, nil
}

func (s *Storage) GetEventWithTickets(ctx context.Context, id int64) (*models.Event, []models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, nil, storage.ErrEventNotFound
	}

	event := *e
	tickets := make([]models.Ticket, 0, len(s.tickets[id]))
	for _, t := range s.tickets[id] {
		tickets = append(tickets, copyTicket(t))
	}

	return &event, tickets, nil
}

func (s *Storage) FindEventByTitle(_ context.Context, title string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title = strings.TrimSpace(title)

	var found *models.Event
	for _, e := range s.events {
		if !strings.EqualFold(e.Title, title) {
			continue
		}
		if found == nil || e.ID < found.ID {
			found = e
		}
	}

	if found == nil {
		return nil, storage.ErrEventNotFound
	}

	event := *found
	return &event, nil
}

func (s *Storage) EventExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.events[id]
	return ok, nil
}

func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.InventoryTx) error) error {
	tx := &inventoryTx{s: s}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	return s.apply(tx.writes)
}

// apply re-checks every staged write and then performs all of them, or none.
func (s *Storage) apply(writes []purchaseWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	decrements := make(map[int64]int)
	for _, w := range writes {
		t, ok := s.byID[w.ticketID]
		if !ok || t.Status != models.TicketAvailable {
			return storage.ErrTicketConflict
		}
		decrements[t.EventID]++
	}

	for eventID, n := range decrements {
		if s.events[eventID].RemainingTickets < n {
			return storage.ErrTicketConflict
		}
	}

	for _, w := range writes {
		t := s.byID[w.ticketID]
		buyer := w.buyerID
		at := w.at
		t.Status = models.TicketSold
		t.BuyerID = &buyer
		t.PurchaseTime = &at
	}

	for eventID, n := range decrements {
		s.events[eventID].RemainingTickets -= n
	}

	return nil
}

type purchaseWrite struct {
	ticketID int64
	buyerID  string
	at       time.Time
}

type inventoryTx struct {
	s      *Storage
	writes []purchaseWrite
}

func (t *inventoryTx) FindAvailableTicket(ctx context.Context, eventID int64) (*models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	for _, ticket := range t.s.tickets[eventID] {
		if ticket.Status != models.TicketAvailable || t.staged(ticket.ID) {
			continue
		}

		found := copyTicket(ticket)
		return &found, nil
	}

	return nil, nil
}

func (t *inventoryTx) CommitPurchase(ctx context.Context, ticketID int64, buyerID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.s.mu.RLock()
	ticket, ok := t.s.byID[ticketID]
	available := ok && ticket.Status == models.TicketAvailable
	t.s.mu.RUnlock()

	if !available || t.staged(ticketID) {
		return storage.ErrTicketConflict
	}

	t.writes = append(t.writes, purchaseWrite{ticketID: ticketID, buyerID: buyerID, at: at})

	return nil
}

func (t *inventoryTx) staged(ticketID int64) bool {
	for _, w := range t.writes {
		if w.ticketID == ticketID {
			return true
		}
	}
	return false
}

func copyTicket(t *models.Ticket) models.Ticket {
	c := *t
	if t.BuyerID != nil {
		buyer := *t.BuyerID
		c.BuyerID = &buyer
	}
	if t.PurchaseTime != nil {
		at := *t.PurchaseTime
		c.PurchaseTime = &at
	}
	return c
}
