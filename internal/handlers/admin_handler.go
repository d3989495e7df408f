package handlers

import (
	"log/slog"
	"net/http"

	"matchday-tickets/internal/services"
	"matchday-tickets/utils"

	"github.com/labstack/echo/v5"
)

type AdminHandler struct {
	tickets *services.TicketService
	breaker *utils.CircuitBreaker
	logger  *slog.Logger
}

func NewAdminHandler(tickets *services.TicketService, breaker *utils.CircuitBreaker, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AdminHandler{
		tickets: tickets,
		breaker: breaker,
		logger:  logger,
	}
}

// DeleteTicket - Hard delete a ticket
func (h *AdminHandler) DeleteTicket(c echo.Context) error {
	id, ok := ticketID(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid ticket id")
	}

	if err := h.tickets.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, "delete", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Ticket deleted", "id": id})
}

// GetStoreStatus - Store availability and calendar breaker state
func (h *AdminHandler) GetStoreStatus(c echo.Context) error {
	data := map[string]any{
		"store_available": h.tickets.Available(),
	}
	if h.breaker != nil {
		counts := h.breaker.Counts()
		data["calendar_breaker"] = map[string]any{
			"name":                 h.breaker.Name(),
			"state":                h.breaker.State().String(),
			"consecutive_failures": counts.ConsecutiveFailures,
			"total_failures":       counts.TotalFailures,
		}
	}
	return c.JSON(http.StatusOK, data)
}
