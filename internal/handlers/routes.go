package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is the part of the store the health check needs.
type Pinger interface {
	Available() bool
	Ping(ctx context.Context) error
}

type Routes struct {
	Tickets       *TicketHandler
	Admin         *AdminHandler
	Store         Pinger
	EnableMetrics bool
}

// NewRouter builds the echo instance serving the local ticket API.
func NewRouter(r Routes) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())

	api := e.Group("/api/v1")

	// Ticket endpoints
	api.POST("/tickets", r.Tickets.Purchase)
	api.GET("/tickets/number/:number", r.Tickets.GetTicketByNumber)
	api.GET("/tickets/:id", r.Tickets.GetTicket)
	api.POST("/tickets/:id/calendar", r.Tickets.AddToCalendar)
	api.POST("/tickets/:id/checkin", r.Tickets.CheckIn)
	api.GET("/users/:userId/tickets", r.Tickets.ListUserTickets)

	// Admin endpoints
	if r.Admin != nil {
		api.DELETE("/admin/tickets/:id", r.Admin.DeleteTicket)
		api.GET("/admin/store", r.Admin.GetStoreStatus)
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if r.Store == nil || !r.Store.Available() {
			return c.JSON(http.StatusOK, map[string]string{
				"status": "healthy",
				"store":  "unavailable",
			})
		}
		if err := r.Store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
			"store":  "available",
		})
	})

	if r.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	return e
}
