package purchaseTicket

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"log/slog"
	"net/http"
	"strconv"
	"ticketSale/internal/lib/api/response"
	"ticketSale/internal/lib/logger/sl"
	"ticketSale/internal/models"
	"ticketSale/internal/purchase"
)

type PurchaseRequest struct {
	BuyerID string `json:"buyer_id" validate:"required"`
}

type PurchaseResponse struct {
	response.Response
	TicketID  int64  `json:"ticket_id"`
	SeatLabel string `json:"seat_label"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=TicketPurchaser
type TicketPurchaser interface {
	Purchase(ctx context.Context, eventID int64, buyerID string) (models.Allocation, error)
}

func New(log *slog.Logger, purchaser TicketPurchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.purchaseTicket.New"

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

		var req PurchaseRequest

		err = render.DecodeJSON(r.Body, &req)
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

		allocation, err := purchaser.Purchase(r.Context(), eventID, req.BuyerID)
		if err != nil {
			status, msg := statusFor(err)
			log.Error("failed to purchase ticket", sl.Err(err), slog.Int("status", status))
			render.Status(r, status)
			render.JSON(w, r, response.Error(msg))
			return
		}

		log.Info("ticket purchased",
			slog.String("buyer_id", req.BuyerID),
			slog.Int64("ticket_id", allocation.TicketID),
			slog.String("seat_label", allocation.SeatLabel),
		)

		responseOK(w, r, allocation)
	}
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
		return http.StatusInternalServerError, "failed to purchase ticket"
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, allocation models.Allocation) {
	render.JSON(w, r, PurchaseResponse{
		Response:  response.OK(),
		TicketID:  allocation.TicketID,
		SeatLabel: allocation.SeatLabel,
	})
}
