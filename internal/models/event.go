package models

import "time"

type Event struct {
	ID               int64     `json:"id" db:"event_id"`
	Title            string    `json:"title" db:"title"`
	Description      string    `json:"description" db:"description"`
	StartTime        time.Time `json:"start_time" db:"start_time"`
	EndTime          time.Time `json:"end_time" db:"end_time"`
	Address          string    `json:"address" db:"address"`
	OrganizerID      int64     `json:"organizer_id" db:"organizer_id"`
	RemainingTickets int       `json:"remaining_tickets" db:"remaining_tickets"`
}

type EventSummary struct {
	ID               int64     `json:"id" db:"event_id"`
	Title            string    `json:"title" db:"title"`
	StartTime        time.Time `json:"start_time" db:"start_time"`
	Address          string    `json:"address" db:"address"`
	RemainingTickets int       `json:"remaining_tickets" db:"remaining_tickets"`
}

// NewEvent is what the creation side hands to storage. NumTickets tickets are
// generated together with the event and never change afterwards.
type NewEvent struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Address     string
	OrganizerID int64
	NumTickets  int
	TicketPrice float64
}

func (e Event) Summary() EventSummary {
	return EventSummary{
		ID:               e.ID,
		Title:            e.Title,
		StartTime:        e.StartTime,
		Address:          e.Address,
		RemainingTickets: e.RemainingTickets,
	}
}
