package chatBooking

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"log/slog"
	"net/http"
	"strings"
	"ticketSale/internal/lib/api/response"
	"ticketSale/internal/lib/intent"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/models"
	"ticketSale/internal/purchase"
	"ticketSale/internal/storage"
)

// maxQuantity caps how many tickets a single chat message may book.
const maxQuantity = 10

const helpReply = `I can show events or book tickets. Try "show events" or "book 2 tickets for <event title>".`

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	BuyerID string `json:"buyer_id"`
}

type ChatResponse struct {
	response.Response
	Intent  intent.Intent         `json:"intent"`
	Reply   string                `json:"reply"`
	Events  []models.EventSummary `json:"events,omitempty"`
	Tickets []models.Allocation   `json:"tickets,omitempty"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=EventFinder
type EventFinder interface {
	ListEvents(ctx context.Context) ([]models.EventSummary, error)
	FindEventByTitle(ctx context.Context, title string) (*models.Event, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=TicketPurchaser
type TicketPurchaser interface {
	Purchase(ctx context.Context, eventID int64, buyerID string) (models.Allocation, error)
}

func New(log *slog.Logger, finder EventFinder, purchaser TicketPurchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.chatBooking.New"

		log := log.With(slog.String("op", op))

		var req ChatRequest

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		in := intent.Parse(req.Message)

		log = log.With(slog.String("intent", string(in.Kind)))
		log.Info("message parsed", slog.String("event", in.Event), slog.Int("quantity", in.Quantity))

		switch in.Kind {
		case intent.KindShow:
			showEvents(w, r, log, finder, in)
		case intent.KindBook:
			book(w, r, log, finder, purchaser, in, req.BuyerID)
		default:
			render.JSON(w, r, ChatResponse{
				Response: response.OK(),
				Intent:   in,
				Reply:    helpReply,
			})
		}
	}
}

func showEvents(w http.ResponseWriter, r *http.Request, log *slog.Logger, finder EventFinder, in intent.Intent) {
	events, err := finder.ListEvents(r.Context())
	if err != nil {
		log.Error("failed to get events", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get events"))
		return
	}

	reply := "There are no events right now."
	if len(events) > 0 {
		reply = "Here are the events you can book."
	}

	render.JSON(w, r, ChatResponse{
		Response: response.OK(),
		Intent:   in,
		Reply:    reply,
		Events:   events,
	})
}

func book(
	w http.ResponseWriter,
	r *http.Request,
	log *slog.Logger,
	finder EventFinder,
	purchaser TicketPurchaser,
	in intent.Intent,
	buyerID string,
) {
	if strings.TrimSpace(buyerID) == "" {
		log.Error("booking without buyer id")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("buyer_id is required to book tickets"))
		return
	}

	event, err := finder.FindEventByTitle(r.Context(), in.Event)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			log.Info("event not found", slog.String("event", in.Event))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(fmt.Sprintf("event %q not found", in.Event)))
			return
		}

		log.Error("failed to find event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to find event"))
		return
	}

	quantity := min(in.Quantity, maxQuantity)

	var (
		tickets []models.Allocation
		lastErr error
	)
	for len(tickets) < quantity {
		allocation, err := purchaser.Purchase(r.Context(), event.ID, buyerID)
		if err != nil {
			lastErr = err
			break
		}
		tickets = append(tickets, allocation)
	}

	log.Info("chat booking finished",
		slog.Int64("event_id", event.ID),
		slog.Int("requested", quantity),
		slog.Int("booked", len(tickets)),
	)

	if len(tickets) == 0 {
		status, msg := statusFor(lastErr)
		log.Error("failed to book tickets", sl.Err(lastErr), slog.Int("status", status))
		render.Status(r, status)
		render.JSON(w, r, response.Error(msg))
		return
	}

	if lastErr != nil {
		log.Warn("booking stopped early", sl.Err(lastErr))
	}

	render.JSON(w, r, ChatResponse{
		Response: response.OK(),
		Intent:   in,
		Reply:    bookingReply(event.Title, quantity, tickets, lastErr),
		Tickets:  tickets,
	})
}

func bookingReply(title string, requested int, tickets []models.Allocation, stopErr error) string {
	seats := make([]string, 0, len(tickets))
	for _, t := range tickets {
		seats = append(seats, t.SeatLabel)
	}

	if len(tickets) == requested {
		return fmt.Sprintf("Booked %d %s for %s: %s.", len(tickets), plural(len(tickets)), title, strings.Join(seats, ", "))
	}

	reason := "the rest could not be booked right now"
	if errors.Is(stopErr, purchase.ErrSoldOut) {
		reason = "the event is now sold out"
	}

	return fmt.Sprintf("Booked only %d of %d tickets for %s (%s): %s.",
		len(tickets), requested, title, reason, strings.Join(seats, ", "))
}

func plural(n int) string {
	if n == 1 {
		return "ticket"
	}
	return "tickets"
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, purchase.ErrUnknownEvent):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, purchase.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, purchase.ErrSoldOut):
		return http.StatusConflict, "sold out"
	case errors.Is(err, purchase.ErrStorageUnavailable), errors.Is(err, purchase.ErrClosed):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "failed to book tickets"
	}
}
