package createEvent

import (
	"context"
	"errors"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"log/slog"
	"net/http"
	"ticketSale/internal/lib/api/response"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/models"
	"time"
)

const defaultTicketPrice = 50.0

type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"omitempty,gtefield=StartTime"`
	Address     string    `json:"address"`
	OrganizerID int64     `json:"organizer_id" validate:"gte=0"`
	NumTickets  int       `json:"num_tickets" validate:"required,min=1,max=10000"`
	TicketPrice *float64  `json:"ticket_price" validate:"omitempty,gte=0"`
}

type EventResponse struct {
	response.Response
	EventID        int64 `json:"event_id"`
	TicketsCreated int   `json:"tickets_created"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventCreator
type EventCreator interface {
	CreateEvent(ctx context.Context, event models.NewEvent) (int64, error)
}

func New(log *slog.Logger, creator EventCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.createEvent.New"

		log := log.With(
			slog.String("op", op),
		)

		var req EventRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))

			return
		}

		log.Info("request body decoded", slog.Any("request", req))

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))

			return
		}

		event := toNewEvent(req)

		eventID, err := creator.CreateEvent(r.Context(), event)
		if err != nil {
			log.Error("failed to add event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to add event"))

			return
		}

		log.Info("event added", slog.Int64("id", eventID), slog.Int("tickets", event.NumTickets))

		responseOK(w, r, eventID, event.NumTickets)
	}
}

func toNewEvent(req EventRequest) models.NewEvent {
	price := defaultTicketPrice
	if req.TicketPrice != nil {
		price = *req.TicketPrice
	}

	end := req.EndTime
	if end.IsZero() {
		end = req.StartTime
	}

	return models.NewEvent{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     end,
		Address:     req.Address,
		OrganizerID: req.OrganizerID,
		NumTickets:  req.NumTickets,
		TicketPrice: price,
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, eventID int64, tickets int) {
	render.JSON(w, r, EventResponse{
		Response:       response.OK(),
		EventID:        eventID,
		TicketsCreated: tickets,
	})
}
