package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"matchday-tickets/internal/services"
	"matchday-tickets/internal/status"
	"matchday-tickets/internal/store"
	"matchday-tickets/utils"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) CreateEvent(ctx context.Context, event services.CalendarEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

var handlerNow = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func setupTestRouter(t *testing.T) (*echo.Echo, *MockCalendar, *utils.FakeClock) {
	t.Helper()

	clk := utils.NewFakeClock(handlerNow)
	st, err := store.Open(context.Background(), store.Config{
		Path:     filepath.Join(t.TempDir(), "tickets.db"),
		Location: time.UTC,
		Clock:    clk,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cal := &MockCalendar{}
	breaker := services.NewCalendarBreaker(utils.WithClock(clk))
	svc := services.NewTicketService(services.TicketServiceConfig{
		Store:    st,
		Engine:   services.NewStatusEngine(clk, time.UTC),
		Calendar: cal,
		Breaker:  breaker,
	})

	e := NewRouter(Routes{
		Tickets: NewTicketHandler(svc, nil),
		Admin:   NewAdminHandler(svc, breaker, nil),
		Store:   st,
	})
	return e, cal, clk
}

func doRequest(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func vipCheckout(userID string) map[string]any {
	return map[string]any{
		"match_id":    42,
		"user_id":     userID,
		"seat":        "B-12",
		"match_name":  "Lions vs Eagles",
		"match_date":  "2025-01-10",
		"match_time":  "18:00",
		"venue":       "National Stadium",
		"ticket_type": "vip",
	}
}

func purchase(t *testing.T, e *echo.Echo, userID string) map[string]any {
	t.Helper()

	rec := doRequest(e, http.MethodPost, "/api/v1/tickets", vipCheckout(userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func ticketPath(ticket map[string]any, suffix string) string {
	return fmt.Sprintf("/api/v1/tickets/%d%s", int64(ticket["id"].(float64)), suffix)
}

func TestTicketHandler_Purchase(t *testing.T) {
	e, _, _ := setupTestRouter(t)

	ticket := purchase(t, e, "user-1")

	assert.Equal(t, "upcoming", ticket["status"])
	assert.Equal(t, "150", ticket["price"])
	assert.Equal(t, "B-12", ticket["seat"])
	assert.Equal(t, true, ticket["can_add_to_calendar"])
	assert.Equal(t, false, ticket["added_to_calendar"])
	assert.Regexp(t, `^TKT-[0-9A-Z]+-[0-9A-F]{6}$`, ticket["ticket_number"])

	countdown := ticket["countdown"].(map[string]any)
	assert.Equal(t, float64(9), countdown["days"])
	assert.Equal(t, float64(8), countdown["hours"])
}

func TestTicketHandler_PurchaseInvalid(t *testing.T) {
	e, _, _ := setupTestRouter(t)

	body := vipCheckout("user-1")
	body["ticket_type"] = "courtside"
	rec := doRequest(e, http.MethodPost, "/api/v1/tickets", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = vipCheckout("user-1")
	body["venue"] = ""
	rec = doRequest(e, http.MethodPost, "/api/v1/tickets", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTicketHandler_GetTicket(t *testing.T) {
	e, _, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	rec := doRequest(e, http.MethodGet, ticketPath(ticket, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ticket["ticket_number"], decode(t, rec)["ticket_number"])

	rec = doRequest(e, http.MethodGet, "/api/v1/tickets/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/v1/tickets/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTicketHandler_GetTicketByNumber(t *testing.T) {
	e, _, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	rec := doRequest(e, http.MethodGet, "/api/v1/tickets/number/"+ticket["ticket_number"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ticket["id"], decode(t, rec)["id"])

	rec = doRequest(e, http.MethodGet, "/api/v1/tickets/number/TKT-UNKNOWN-000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketHandler_ListUserTickets(t *testing.T) {
	e, _, clk := setupTestRouter(t)

	purchase(t, e, "user-1")
	clk.Advance(time.Minute)
	second := purchase(t, e, "user-1")
	purchase(t, e, "user-2")

	rec := doRequest(e, http.MethodGet, "/api/v1/users/user-1/tickets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decode(t, rec)
	assert.Equal(t, float64(2), response["count"])
	tickets := response["tickets"].([]any)
	require.Len(t, tickets, 2)
	assert.Equal(t, second["id"], tickets[0].(map[string]any)["id"])

	rec = doRequest(e, http.MethodGet, "/api/v1/users/nobody/tickets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["tickets"])
}

func TestTicketHandler_AddToCalendar(t *testing.T) {
	e, cal, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("evt-1", nil).Once()

	rec := doRequest(e, http.MethodPost, ticketPath(ticket, "/calendar"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "evt-1", decode(t, rec)["event_id"])

	rec = doRequest(e, http.MethodPost, ticketPath(ticket, "/calendar"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	cal.AssertExpectations(t)
}

func TestTicketHandler_AddToCalendarDenied(t *testing.T) {
	e, cal, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	cal.On("CreateEvent", mock.Anything, mock.Anything).Return("", status.ErrCalendarPermissionDenied).Once()

	rec := doRequest(e, http.MethodPost, ticketPath(ticket, "/calendar"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTicketHandler_CheckIn(t *testing.T) {
	e, _, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	rec := doRequest(e, http.MethodPost, ticketPath(ticket, "/checkin"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "used", decode(t, rec)["status"])

	rec = doRequest(e, http.MethodPost, ticketPath(ticket, "/checkin"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminHandler_DeleteTicket(t *testing.T) {
	e, _, _ := setupTestRouter(t)
	ticket := purchase(t, e, "user-1")

	rec := doRequest(e, http.MethodDelete, fmt.Sprintf("/api/v1/admin/tickets/%d", int64(ticket["id"].(float64))), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, ticketPath(ticket, ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/admin/tickets/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandler_GetStoreStatus(t *testing.T) {
	e, _, _ := setupTestRouter(t)

	rec := doRequest(e, http.MethodGet, "/api/v1/admin/store", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decode(t, rec)
	assert.Equal(t, true, response["store_available"])
	assert.Equal(t, "closed", response["calendar_breaker"].(map[string]any)["state"])
}

func TestHealth(t *testing.T) {
	e, _, _ := setupTestRouter(t)

	rec := doRequest(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "available", decode(t, rec)["store"])
}

func TestRouter_StoreUnavailable(t *testing.T) {
	var st *store.Store
	svc := services.NewTicketService(services.TicketServiceConfig{Store: st})
	e := NewRouter(Routes{
		Tickets:       NewTicketHandler(svc, nil),
		Admin:         NewAdminHandler(svc, nil, nil),
		Store:         st,
		EnableMetrics: true,
	})

	rec := doRequest(e, http.MethodGet, "/api/v1/users/user-1/tickets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	response := decode(t, rec)
	assert.Empty(t, response["tickets"])
	assert.Equal(t, false, response["available"])

	rec = doRequest(e, http.MethodGet, "/api/v1/tickets/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodPost, "/api/v1/tickets", vipCheckout("user-1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(e, http.MethodPost, "/api/v1/tickets/1/calendar", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/api/v1/admin/tickets/1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unavailable", decode(t, rec)["store"])

	rec = doRequest(e, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
