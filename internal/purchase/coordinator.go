package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ticketSale/internal/lib/clock"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/metrics"
	"ticketSale/internal/models"
	"ticketSale/internal/storage"
)

const (
	// maxAttempts bounds the transaction retries after a ticket conflict.
	maxAttempts   = 2
	notifyTimeout = 5 * time.Second
	// notifyBuffer is how many committed allocations may wait for the
	// notifier before new ones are dropped.
	notifyBuffer = 1024
)

type Inventory interface {
	EventExists(ctx context.Context, eventID int64) (bool, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.InventoryTx) error) error
}

// Notifier is told about every committed allocation.
type Notifier interface {
	NotifyPurchase(ctx context.Context, allocation models.Allocation) error
}

// Coordinator serializes purchases per event. Each event with pending requests
// gets its own FIFO queue and a single goroutine draining it; queues are
// created on first use and dropped once empty. Requests for different events
// never wait on each other.
type Coordinator struct {
	log       *slog.Logger
	inventory Inventory
	clock     clock.Clock
	notifier  Notifier
	txTimeout time.Duration

	mu     sync.Mutex
	queues map[int64]*eventQueue
	closed bool
	wg     sync.WaitGroup

	notifications   chan models.Allocation
	publisherDone   chan struct{}
	closeNotifyOnce sync.Once
}

type Option func(*Coordinator)

func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clk
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithTxTimeout bounds each purchase transaction. Zero means no bound.
func WithTxTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.txTimeout = d
	}
}

func New(log *slog.Logger, inventory Inventory, opts ...Option) *Coordinator {
	c := &Coordinator{
		log:       log,
		inventory: inventory,
		clock:     clock.NewSystem(),
		queues:    make(map[int64]*eventQueue),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.notifier != nil {
		c.notifications = make(chan models.Allocation, notifyBuffer)
		c.publisherDone = make(chan struct{})
		go c.publish()
	}

	return c
}

const (
	stateQueued int32 = iota
	stateInFlight
	stateAbandoned
)

type request struct {
	ctx     context.Context
	buyerID string
	state   atomic.Int32
	done    chan result
}

type result struct {
	allocation models.Allocation
	err        error
}

type eventQueue struct {
	eventID int64
	pending []*request
}

// Purchase allocates one ticket of eventID to buyerID. It blocks until every
// earlier request for the same event has resolved and this one has too.
//
// If ctx ends while the request is still queued the request is dropped without
// touching the inventory. If it ends while the request is in flight the
// transaction still runs to completion and its result is discarded.
func (c *Coordinator) Purchase(ctx context.Context, eventID int64, buyerID string) (models.Allocation, error) {
	const op = "purchase.Coordinator.Purchase"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("event_id", eventID),
		slog.String("buyer_id", buyerID),
	)

	if err := c.validate(ctx, eventID, buyerID); err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		} else if errors.Is(err, ErrStorageUnavailable) {
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		}
		return models.Allocation{}, err
	}

	req := &request{
		ctx:     ctx,
		buyerID: buyerID,
		done:    make(chan result, 1),
	}

	if err := c.enqueue(eventID, req); err != nil {
		return models.Allocation{}, err
	}

	select {
	case res := <-req.done:
		return res.allocation, res.err
	case <-ctx.Done():
	}

	if req.state.CompareAndSwap(stateQueued, stateAbandoned) {
		metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeAbandoned).Inc()
		log.Info("purchase abandoned while queued", sl.Err(ctx.Err()))
		return models.Allocation{}, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.allocation, res.err
	default:
	}

	log.Warn("caller left while purchase was in flight, result will be discarded", sl.Err(ctx.Err()))

	return models.Allocation{}, ctx.Err()
}

// Close stops accepting purchases and waits until every queued and in-flight
// request has resolved and every pending notification has been handed to the
// notifier, or ctx ends.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		if c.notifications != nil {
			c.closeNotifyOnce.Do(func() { close(c.notifications) })
			<-c.publisherDone
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight purchases: %w", ctx.Err())
	}
}

func (c *Coordinator) validate(ctx context.Context, eventID int64, buyerID string) error {
	if eventID <= 0 {
		return ErrInvalidEventID
	}

	if strings.TrimSpace(buyerID) == "" {
		return ErrInvalidBuyerID
	}

	exists, err := c.inventory.EventExists(ctx, eventID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if !exists {
		return ErrUnknownEvent
	}

	return nil
}

func (c *Coordinator) enqueue(eventID int64, req *request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	q, ok := c.queues[eventID]
	if !ok {
		q = &eventQueue{eventID: eventID}
		c.queues[eventID] = q

		c.wg.Add(1)
		go c.drain(q)
	}

	q.pending = append(q.pending, req)
	metrics.QueueDepth.Inc()

	return nil
}

// next pops the head of q. When q is empty it is removed from the arena under
// the same lock enqueue takes, so a later request starts a fresh queue.
func (c *Coordinator) next(q *eventQueue) *request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(q.pending) == 0 {
		delete(c.queues, q.eventID)
		return nil
	}

	req := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	metrics.QueueDepth.Dec()

	return req
}

func (c *Coordinator) drain(q *eventQueue) {
	defer c.wg.Done()

	for {
		req := c.next(q)
		if req == nil {
			return
		}

		if !req.state.CompareAndSwap(stateQueued, stateInFlight) {
			continue
		}

		allocation, err := c.allocate(req.ctx, q.eventID, req.buyerID)
		req.done <- result{allocation: allocation, err: err}

		if err == nil {
			c.enqueueNotification(allocation)
		}
	}
}

// allocate runs the purchase transaction on a context detached from the
// caller, so a disconnecting caller cannot abort it halfway.
func (c *Coordinator) allocate(parent context.Context, eventID int64, buyerID string) (models.Allocation, error) {
	const op = "purchase.Coordinator.allocate"

	log := c.log.With(
		slog.String("op", op),
		slog.Int64("event_id", eventID),
		slog.String("buyer_id", buyerID),
	)

	ctx := context.WithoutCancel(parent)
	if c.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.txTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		metrics.PurchaseDuration.Observe(time.Since(start).Seconds())
	}()

	for attempt := 1; ; attempt++ {
		allocation, err := c.tryAllocate(ctx, eventID, buyerID)

		switch {
		case err == nil:
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeAllocated).Inc()
			log.Info("ticket allocated",
				slog.Int64("ticket_id", allocation.TicketID),
				slog.String("seat_label", allocation.SeatLabel),
			)
			return allocation, nil

		case errors.Is(err, ErrSoldOut):
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeSoldOut).Inc()
			log.Info("event sold out")
			return models.Allocation{}, ErrSoldOut

		case errors.Is(err, storage.ErrTicketConflict):
			metrics.PurchaseConflicts.Inc()
			if attempt < maxAttempts {
				log.Warn("ticket conflict, retrying purchase", sl.Err(err), slog.Int("attempt", attempt))
				continue
			}

			// Still matches storage.ErrTicketConflict for callers that need
			// to tell this apart from plain exhaustion.
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeSoldOut).Inc()
			log.Error("ticket conflict persisted after retry, reporting sold out", sl.Err(err))
			return models.Allocation{}, fmt.Errorf("%w: %w", ErrSoldOut, err)

		default:
			metrics.PurchaseRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
			log.Error("purchase transaction failed", sl.Err(err))
			return models.Allocation{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
	}
}

func (c *Coordinator) tryAllocate(ctx context.Context, eventID int64, buyerID string) (models.Allocation, error) {
	var allocation models.Allocation

	err := c.inventory.InTx(ctx, func(ctx context.Context, tx storage.InventoryTx) error {
		ticket, err := tx.FindAvailableTicket(ctx, eventID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return ErrSoldOut
		}

		now := c.clock.Now()
		if err = tx.CommitPurchase(ctx, ticket.ID, buyerID, now); err != nil {
			return err
		}

		allocation = models.Allocation{
			TicketID:     ticket.ID,
			EventID:      eventID,
			SeatLabel:    ticket.SeatLabel,
			Price:        ticket.Price,
			BuyerID:      buyerID,
			PurchaseTime: now,
		}

		return nil
	})
	if err != nil {
		return models.Allocation{}, err
	}

	return allocation, nil
}

// enqueueNotification hands allocation to the publisher without waiting on
// it. When the buffer is full the notification is dropped.
func (c *Coordinator) enqueueNotification(allocation models.Allocation) {
	if c.notifications == nil {
		return
	}

	select {
	case c.notifications <- allocation:
	default:
		metrics.NotificationsDropped.Inc()
		c.log.Warn("notification buffer full, dropping purchase notification",
			slog.Int64("ticket_id", allocation.TicketID),
			slog.Int64("event_id", allocation.EventID),
		)
	}
}

func (c *Coordinator) publish() {
	defer close(c.publisherDone)

	for allocation := range c.notifications {
		c.notify(allocation)
	}
}

func (c *Coordinator) notify(allocation models.Allocation) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := c.notifier.NotifyPurchase(ctx, allocation); err != nil {
		c.log.Error("failed to publish purchase notification",
			slog.Int64("ticket_id", allocation.TicketID),
			sl.Err(err),
		)
	}
}
