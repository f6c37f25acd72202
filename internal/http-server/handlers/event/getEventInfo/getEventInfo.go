package getEventInfo

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"strconv"
	"ticketSale/internal/lib/api/response"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/models"
	"ticketSale/internal/storage"
)

type EventInfoResponse struct {
	response.Response
	Event   *models.Event   `json:"event"`
	Tickets []models.Ticket `json:"tickets"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventGetter
type EventGetter interface {
	GetEventWithTickets(ctx context.Context, eventID int64) (*models.Event, []models.Ticket, error)
}

func New(log *slog.Logger, info EventGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.getEventInfo.New"

		log := log.With(slog.String("op", op))

		eventIdStr := chi.URLParam(r, "id")
		if eventIdStr == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		eventID, err := strconv.ParseInt(eventIdStr, 10, 64)
		if err != nil {
			log.Error("invalid event id format", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid event id format"))
			return
		}

		log = log.With(slog.Int64("event_id", eventID))

		event, tickets, err := info.GetEventWithTickets(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, storage.ErrEventNotFound) {
				log.Info("event not found")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
				return
			}

			log.Error("failed to get event information", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get event information"))
			return
		}

		log.Info("event info successfully received", slog.Int("tickets", len(tickets)))

		responseOK(w, r, event, tickets)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, event *models.Event, tickets []models.Ticket) {
	if tickets == nil {
		tickets = []models.Ticket{}
	}

	render.JSON(w, r, EventInfoResponse{
		Response: response.OK(),
		Event:    event,
		Tickets:  tickets,
	})
}
