package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketSale/internal/config"
	"ticketSale/internal/models"
	"ticketSale/internal/storage"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres error codes that mean the transaction lost a race and may be
// retried from scratch.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

type Storage struct {
	DB *sqlx.DB
}

func InitDB(dbCfg *config.Database) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.DBName,
		dbCfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	db.SetMaxOpenConns(dbCfg.MaxOpenConns)
	db.SetMaxIdleConns(dbCfg.MaxIdleConns)
	db.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	return New(db), nil
}

func New(db *sqlx.DB) *Storage {
	return &Storage{DB: db}
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) CreateEvent(ctx context.Context, event models.NewEvent) (int64, error) {
	const op = "storage.postgres.CreateEvent"

	if event.NumTickets <= 0 {
		return 0, fmt.Errorf("%s: event needs at least one ticket", op)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	eventQuery := `
		INSERT INTO events (title, description, start_time, end_time, address, organizer_id, remaining_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING event_id`

	var id int64
	err = tx.QueryRowxContext(ctx, eventQuery,
		event.Title,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Address,
		event.OrganizerID,
		event.NumTickets,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to create event: %w", op, err)
	}

	stmt, err := tx.PreparexContext(ctx, pq.CopyIn("tickets", "event_id", "seat_position", "seat_label", "price", "status"))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to prepare ticket copy: %w", op, err)
	}

	for i := 1; i <= event.NumTickets; i++ {
		_, err = stmt.ExecContext(ctx, id, i, models.SeatLabel(i, event.NumTickets), event.TicketPrice, models.TicketAvailable)
		if err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("%s: failed to queue ticket: %w", op, err)
		}
	}

	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("%s: failed to write tickets: %w", op, err)
	}

	if err = stmt.Close(); err != nil {
		return 0, fmt.Errorf("%s: failed to close ticket copy: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: failed to commit: %w", op, err)
	}

	return id, nil
}

func (s *Storage) ListEvents(ctx context.Context) ([]models.EventSummary, error) {
	query := `
		SELECT event_id, title, start_time, address, remaining_tickets
		FROM events
		ORDER BY start_time ASC, event_id ASC`

	events := []models.EventSummary{}
	if err := s.DB.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	return events, nil
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT event_id, title, description, start_time, end_time, address, organizer_id, remaining_tickets
		FROM events
		WHERE event_id = $1`

	var event models.Event
	err := s.DB.GetContext(ctx, &event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (s *Storage) GetEventWithTickets(ctx context.Context, id int64) (*models.Event, []models.Ticket, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	query := `
		SELECT ticket_id, event_id, seat_position, seat_label, price, status, buyer_id, purchase_time
		FROM tickets
		WHERE event_id = $1
		ORDER BY seat_position ASC`

	tickets := []models.Ticket{}
	if err = s.DB.SelectContext(ctx, &tickets, query, id); err != nil {
		return nil, nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	return event, tickets, nil
}

func (s *Storage) FindEventByTitle(ctx context.Context, title string) (*models.Event, error) {
	query := `
		SELECT event_id, title, description, start_time, end_time, address, organizer_id, remaining_tickets
		FROM events
		WHERE lower(title) = lower($1)
		ORDER BY event_id ASC
		LIMIT 1`

	var event models.Event
	err := s.DB.GetContext(ctx, &event, query, strings.TrimSpace(title))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	return &event, nil
}

func (s *Storage) EventExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM events WHERE event_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}

	return exists, nil
}

// InTx runs fn inside a read-committed transaction. The transaction commits
// only if fn returns nil. Serialization failures and deadlocks come back as
// storage.ErrTicketConflict.
func (s *Storage) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.InventoryTx) error) error {
	tx, err := s.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	if err = fn(ctx, inventoryTx{tx: tx}); err != nil {
		return errors.Join(classify(err), tx.Rollback())
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}

type inventoryTx struct {
	tx *sqlx.Tx
}

const availableTicketQuery = `
	SELECT ticket_id, event_id, seat_position, seat_label, price, status, buyer_id, purchase_time
	FROM tickets
	WHERE event_id = $1 AND status = 'available'
	ORDER BY seat_position ASC, seat_label ASC
	LIMIT 1`

// FindAvailableTicket first skips rows another transaction has locked, so a
// replica's in-flight purchase does not stall this one. If nothing unlocked is
// left it waits on the locked rows instead: they only count as sold once their
// transactions commit.
func (t inventoryTx) FindAvailableTicket(ctx context.Context, eventID int64) (*models.Ticket, error) {
	ticket, err := t.lockAvailableTicket(ctx, availableTicketQuery+` FOR UPDATE SKIP LOCKED`, eventID)
	if err != nil || ticket != nil {
		return ticket, err
	}

	return t.lockAvailableTicket(ctx, availableTicketQuery+` FOR UPDATE`, eventID)
}

func (t inventoryTx) lockAvailableTicket(ctx context.Context, query string, eventID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := t.tx.GetContext(ctx, &ticket, query, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find available ticket: %w", err)
	}

	return &ticket, nil
}

func (t inventoryTx) CommitPurchase(ctx context.Context, ticketID int64, buyerID string, at time.Time) error {
	ticketQuery := `
		UPDATE tickets
		SET status = 'sold', buyer_id = $2, purchase_time = $3
		WHERE ticket_id = $1 AND status = 'available'
		RETURNING event_id`

	var eventID int64
	err := t.tx.QueryRowxContext(ctx, ticketQuery, ticketID, buyerID, at).Scan(&eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrTicketConflict
		}
		return fmt.Errorf("failed to mark ticket sold: %w", err)
	}

	countQuery := `
		UPDATE events
		SET remaining_tickets = remaining_tickets - 1
		WHERE event_id = $1 AND remaining_tickets > 0`

	res, err := t.tx.ExecContext(ctx, countQuery, eventID)
	if err != nil {
		return fmt.Errorf("failed to decrement remaining tickets: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return storage.ErrTicketConflict
	}

	return nil
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", storage.ErrTicketConflict, pqErr.Message)
		}
	}

	return err
}
