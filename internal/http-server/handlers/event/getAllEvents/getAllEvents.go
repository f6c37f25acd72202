package getAllEvents

import (
	"context"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"ticketSale/internal/lib/api/response"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/models"
)

type EventsResponse struct {
	response.Response
	Events []models.EventSummary `json:"events"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventsLister
type EventsLister interface {
	ListEvents(ctx context.Context) ([]models.EventSummary, error)
}

func New(log *slog.Logger, lister EventsLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.getAllEvents.New"

		log := log.With(slog.String("op", op))

		events, err := lister.ListEvents(r.Context())
		if err != nil {
			log.Error("failed to get events", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to get events"))
			return
		}

		log.Info("events retrieved successfully", slog.Int("count", len(events)))

		responseOK(w, r, events)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, events []models.EventSummary) {
	if events == nil {
		events = []models.EventSummary{}
	}

	render.JSON(w, r, EventsResponse{
		Response: response.OK(),
		Events:   events,
	})
}
