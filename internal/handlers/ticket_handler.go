package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"matchday-tickets/internal/services"
	"matchday-tickets/internal/status"
	"matchday-tickets/models"

	"github.com/labstack/echo/v5"
)

type TicketHandler struct {
	tickets *services.TicketService
	logger  *slog.Logger
}

func NewTicketHandler(tickets *services.TicketService, logger *slog.Logger) *TicketHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TicketHandler{
		tickets: tickets,
		logger:  logger,
	}
}

// Purchase - Store the ticket for a completed checkout
func (h *TicketHandler) Purchase(c echo.Context) error {
	var req models.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	view, err := h.tickets.Purchase(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, "purchase", err)
	}
	return c.JSON(http.StatusCreated, view)
}

// GetTicket - Get a single ticket by id
func (h *TicketHandler) GetTicket(c echo.Context) error {
	id, ok := ticketID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid ticket id")
	}

	view, err := h.tickets.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "get", err)
	}
	return c.JSON(http.StatusOK, view)
}

// GetTicketByNumber - Look a ticket up by its printed number
func (h *TicketHandler) GetTicketByNumber(c echo.Context) error {
	view, err := h.tickets.GetByNumber(c.Request().Context(), c.PathParam("number"))
	if err != nil {
		return respondError(c, h.logger, "get_by_number", err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListUserTickets - All tickets of a user, newest purchase first
func (h *TicketHandler) ListUserTickets(c echo.Context) error {
	views := h.tickets.ListForUser(c.Request().Context(), c.PathParam("userId"))
	return c.JSON(http.StatusOK, map[string]any{
		"tickets":   views,
		"count":     len(views),
		"available": h.tickets.Available(),
	})
}

// AddToCalendar - Create the calendar event for an upcoming ticket
func (h *TicketHandler) AddToCalendar(c echo.Context) error {
	id, ok := ticketID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid ticket id")
	}

	eventID, err := h.tickets.AddToCalendar(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "add_to_calendar", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Ticket added to calendar",
		"event_id": eventID,
	})
}

// CheckIn - Mark a ticket as used at the gate
func (h *TicketHandler) CheckIn(c echo.Context) error {
	id, ok := ticketID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid ticket id")
	}

	view, err := h.tickets.CheckIn(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "check_in", err)
	}
	return c.JSON(http.StatusOK, view)
}

func ticketID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.PathParam("id"), 10, 64)
	return id, err == nil && id > 0
}

func errorJSON(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"error": message})
}

// respondError maps service errors onto HTTP responses. Only unexpected
// errors are logged.
func respondError(c echo.Context, logger *slog.Logger, op string, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, status.ErrTicketNotFound):
		code = http.StatusNotFound
	case errors.Is(err, status.ErrInvalidTicket):
		code = http.StatusBadRequest
	case errors.Is(err, status.ErrCalendarNotAllowed), errors.Is(err, status.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, status.ErrCalendarPermissionDenied):
		code = http.StatusForbidden
	case errors.Is(err, status.ErrStoreUnavailable), errors.Is(err, status.ErrCalendarUnavailable):
		code = http.StatusServiceUnavailable
	}

	if code == http.StatusInternalServerError {
		logger.Error("ticket request failed", "op", op, "error", err)
		return errorJSON(c, code, "internal error")
	}
	return errorJSON(c, code, err.Error())
}
