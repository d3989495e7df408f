package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"matchday-tickets/internal/status"
	"matchday-tickets/models"
	"matchday-tickets/monitoring"
	"matchday-tickets/utils"
)

// TicketStore is the persistence the service needs. *store.Store
// satisfies it, including when nil.
type TicketStore interface {
	Available() bool
	CreateTicket(ctx context.Context, in models.TicketInput) (*models.Ticket, error)
	GetTicketByID(ctx context.Context, id int64) *models.Ticket
	GetTicketByNumber(ctx context.Context, number string) *models.Ticket
	ListTicketsForUser(ctx context.Context, userID string) []*models.Ticket
	UpdateStatus(ctx context.Context, id int64, newStatus models.TicketStatus) error
	MarkAddedToCalendar(ctx context.Context, id int64) error
	DeleteTicket(ctx context.Context, id int64) (bool, error)
}

// TicketView is a ticket as the UI shows it: effective status, a live
// countdown and whether the calendar action is offered.
type TicketView struct {
	*models.Ticket
	Countdown        Countdown `json:"countdown"`
	CanAddToCalendar bool      `json:"can_add_to_calendar"`
}

type TicketService struct {
	store    TicketStore
	engine   *StatusEngine
	calendar Calendar
	identity Identity
	breaker  *utils.CircuitBreaker
	logger   *slog.Logger
}

type TicketServiceConfig struct {
	Store    TicketStore
	Engine   *StatusEngine
	Calendar Calendar
	Identity Identity
	Breaker  *utils.CircuitBreaker
	Logger   *slog.Logger
}

func NewTicketService(cfg TicketServiceConfig) *TicketService {
	s := &TicketService{
		store:    cfg.Store,
		engine:   cfg.Engine,
		calendar: cfg.Calendar,
		identity: cfg.Identity,
		breaker:  cfg.Breaker,
		logger:   cfg.Logger,
	}
	if s.engine == nil {
		s.engine = NewStatusEngine(nil, nil)
	}
	if s.identity == nil {
		s.identity = NewGuestIdentity()
	}
	if s.breaker == nil {
		s.breaker = NewCalendarBreaker()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// NewCalendarBreaker guards calendar writes. A denied permission is the
// user's answer, not a broken calendar, so it does not count as a failure.
func NewCalendarBreaker(opts ...utils.BreakerOption) *utils.CircuitBreaker {
	opts = append(opts, utils.WithSuccessClassifier(func(err error) bool {
		return err == nil || errors.Is(err, status.ErrCalendarPermissionDenied)
	}))
	return utils.NewCircuitBreaker("calendar", opts...)
}

func (s *TicketService) Engine() *StatusEngine { return s.engine }

// Available reports whether tickets can be persisted on this device.
func (s *TicketService) Available() bool {
	return s.store != nil && s.store.Available()
}

// Purchase records a completed checkout. A request without a user id is
// attributed to the current identity.
func (s *TicketService) Purchase(ctx context.Context, req models.CheckoutRequest) (*TicketView, error) {
	if !s.Available() {
		return nil, status.ErrStoreUnavailable
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		id, err := s.identity.CurrentUserID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving purchaser: %w", err)
		}
		userID = id
	}

	in, err := req.ToInput(userID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.store.CreateTicket(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ticket), nil
}

// ListForUser returns the user's tickets, newest purchase first, with
// stale upcoming rows corrected in storage as a side effect.
func (s *TicketService) ListForUser(ctx context.Context, userID string) []TicketView {
	views := []TicketView{}
	if !s.Available() {
		return views
	}

	for _, t := range s.store.ListTicketsForUser(ctx, userID) {
		views = append(views, *s.view(ctx, t))
	}
	return views
}

// Get returns the ticket with id, or status.ErrTicketNotFound.
func (s *TicketService) Get(ctx context.Context, id int64) (*TicketView, error) {
	t := s.lookup(ctx, id)
	if t == nil {
		return nil, status.ErrTicketNotFound
	}
	return s.view(ctx, t), nil
}

// GetByNumber returns the ticket with the given ticket number, or
// status.ErrTicketNotFound.
func (s *TicketService) GetByNumber(ctx context.Context, number string) (*TicketView, error) {
	if !s.Available() {
		return nil, status.ErrTicketNotFound
	}
	t := s.store.GetTicketByNumber(ctx, number)
	if t == nil {
		return nil, status.ErrTicketNotFound
	}
	return s.view(ctx, t), nil
}

func (s *TicketService) lookup(ctx context.Context, id int64) *models.Ticket {
	if !s.Available() {
		return nil
	}
	return s.store.GetTicketByID(ctx, id)
}

// view evaluates t and, when the stored status has fallen behind the
// clock, writes the correction back. A failed repair is logged; the view
// still carries the effective status.
func (s *TicketService) view(ctx context.Context, t *models.Ticket) *TicketView {
	ev := s.evaluate(ctx, t)

	effective := *t
	effective.Status = ev.Status

	return &TicketView{
		Ticket:           &effective,
		Countdown:        s.engine.Countdown(&effective),
		CanAddToCalendar: s.engine.CanAddToCalendar(&effective),
	}
}

// evaluate returns the effective status of t, writing it back when the
// stored status has fallen behind the clock.
func (s *TicketService) evaluate(ctx context.Context, t *models.Ticket) Evaluation {
	ev := s.engine.Evaluate(t)
	if !ev.NeedsRepair {
		return ev
	}

	err := s.store.UpdateStatus(ctx, t.ID, ev.Status)
	monitoring.TrackStatusRepair(err)
	if err != nil {
		s.logger.Warn("ticket status repair failed",
			"id", t.ID,
			"from", t.Status,
			"to", ev.Status,
			"error", err,
		)
	} else {
		s.logger.Info("ticket status repaired", "id", t.ID, "from", t.Status, "to", ev.Status)
	}
	return ev
}

// AddToCalendar creates the calendar event for an upcoming ticket and
// records that it was added. It returns the calendar's event id.
func (s *TicketService) AddToCalendar(ctx context.Context, id int64) (string, error) {
	t := s.lookup(ctx, id)
	if t == nil {
		if !s.Available() {
			return "", status.ErrStoreUnavailable
		}
		return "", status.ErrTicketNotFound
	}
	if !s.engine.CanAddToCalendar(t) {
		monitoring.TrackCalendarEvent("rejected")
		return "", status.ErrCalendarNotAllowed
	}
	if s.calendar == nil {
		monitoring.TrackCalendarEvent("unavailable")
		return "", status.ErrCalendarUnavailable
	}

	kickoff, err := models.MatchInstant(t.MatchDate, t.MatchTime, s.engine.loc)
	if err != nil {
		// CanAddToCalendar already rejected unparsable dates.
		return "", fmt.Errorf("%w: %v", status.ErrCalendarNotAllowed, err)
	}

	var eventID string
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		eventID, err = s.calendar.CreateEvent(ctx, NewMatchEvent(t, kickoff))
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, status.ErrCalendarPermissionDenied):
		monitoring.TrackCalendarEvent("denied")
		return "", err
	case errors.Is(err, utils.ErrCircuitOpen), errors.Is(err, utils.ErrTooManyRequests):
		monitoring.TrackCalendarEvent("unavailable")
		return "", fmt.Errorf("%w: %v", status.ErrCalendarUnavailable, err)
	case errors.Is(err, status.ErrCalendarUnavailable):
		monitoring.TrackCalendarEvent("unavailable")
		return "", err
	default:
		monitoring.TrackCalendarEvent("error")
		return "", fmt.Errorf("%w: %v", status.ErrCalendarUnavailable, err)
	}

	if err := s.store.MarkAddedToCalendar(ctx, t.ID); err != nil {
		// The event exists on the calendar; the flag will be missing until
		// the user adds it again.
		monitoring.TrackCalendarEvent("unrecorded")
		s.logger.Error("failed to record calendar event", "id", t.ID, "event_id", eventID, "error", err)
		return eventID, fmt.Errorf("recording calendar event for ticket %d: %w", t.ID, err)
	}

	monitoring.TrackCalendarEvent("added")
	s.logger.Info("ticket added to calendar", "id", t.ID, "event_id", eventID)
	return eventID, nil
}

// CheckIn marks an upcoming ticket as used at the gate.
func (s *TicketService) CheckIn(ctx context.Context, id int64) (*TicketView, error) {
	t := s.lookup(ctx, id)
	if t == nil {
		if !s.Available() {
			return nil, status.ErrStoreUnavailable
		}
		return nil, status.ErrTicketNotFound
	}

	ev := s.evaluate(ctx, t)
	if !CanTransition(ev.Status, models.StatusUsed) {
		return nil, fmt.Errorf("%w: %s -> %s", status.ErrInvalidTransition, ev.Status, models.StatusUsed)
	}

	if err := s.store.UpdateStatus(ctx, t.ID, models.StatusUsed); err != nil {
		return nil, err
	}

	s.logger.Info("ticket checked in", "id", t.ID, "ticket_number", t.TicketNumber, "at", s.engine.Now().Format(time.RFC3339))

	t.Status = models.StatusUsed
	return s.view(ctx, t), nil
}

// Delete removes a ticket outright. It is an administrative operation.
func (s *TicketService) Delete(ctx context.Context, id int64) error {
	if !s.Available() {
		return status.ErrStoreUnavailable
	}
	deleted, err := s.store.DeleteTicket(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return status.ErrTicketNotFound
	}
	return nil
}
