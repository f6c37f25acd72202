package postgres

import (
	"context"
	"fmt"
)

func (s *Storage) CreateTables(ctx context.Context) error {
	if err := s.createEventsTable(ctx); err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	if err := s.createTicketsTable(ctx); err != nil {
		return fmt.Errorf("creating tickets table: %w", err)
	}

	return nil
}

func (s *Storage) createEventsTable(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS events (
		event_id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		organizer_id BIGINT NOT NULL DEFAULT 0,
		remaining_tickets INTEGER NOT NULL CHECK (remaining_tickets >= 0)
	);`)
	return err
}

func (s *Storage) createTicketsTable(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tickets (
		ticket_id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events (event_id) ON DELETE CASCADE,
		seat_position INTEGER NOT NULL,
		seat_label TEXT NOT NULL,
		price NUMERIC(10, 2) NOT NULL DEFAULT 50.0,
		status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'sold')),
		buyer_id TEXT,
		purchase_time TIMESTAMPTZ,
		UNIQUE (event_id, seat_label),
		UNIQUE (event_id, seat_position),
		CHECK ((status = 'sold') = (buyer_id IS NOT NULL AND purchase_time IS NOT NULL))
	);
	CREATE INDEX IF NOT EXISTS tickets_available_idx ON tickets (event_id, status, seat_position);`)
	return err
}
