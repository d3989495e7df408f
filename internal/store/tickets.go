package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"matchday-tickets/internal/status"
	"matchday-tickets/models"
	"matchday-tickets/monitoring"
	"matchday-tickets/utils"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"
)

// purchaseDateLayout is fixed-width so purchase_date sorts as text.
const purchaseDateLayout = "2006-01-02T15:04:05.000Z07:00"

const maxTicketNumberAttempts = 5

var ticketColumns = []string{
	"id", "match_id", "user_id", "ticket_number", "seat", "purchase_date",
	"match_name", "match_date", "match_time", "venue", "ticket_type",
	"price", "status", "added_to_calendar", "price_exact",
}

type ticketRow struct {
	ID              int64          `db:"id"`
	MatchID         int64          `db:"match_id"`
	UserID          string         `db:"user_id"`
	TicketNumber    string         `db:"ticket_number"`
	Seat            sql.NullString `db:"seat"`
	PurchaseDate    string         `db:"purchase_date"`
	MatchName       string         `db:"match_name"`
	MatchDate       string         `db:"match_date"`
	MatchTime       string         `db:"match_time"`
	Venue           string         `db:"venue"`
	TicketType      string         `db:"ticket_type"`
	Price           float64        `db:"price"`
	Status          string         `db:"status"`
	AddedToCalendar int            `db:"added_to_calendar"`
	PriceExact      sql.NullString `db:"price_exact"`
}

func (r ticketRow) toModel() *models.Ticket {
	t := &models.Ticket{
		ID:              r.ID,
		MatchID:         r.MatchID,
		UserID:          r.UserID,
		TicketNumber:    r.TicketNumber,
		MatchName:       r.MatchName,
		MatchDate:       r.MatchDate,
		MatchTime:       r.MatchTime,
		Venue:           r.Venue,
		TicketType:      models.TicketType(r.TicketType),
		Price:           decimal.NewFromFloat(r.Price),
		Status:          models.TicketStatus(r.Status),
		AddedToCalendar: r.AddedToCalendar != 0,
	}
	if r.PriceExact.Valid {
		if price, err := decimal.NewFromString(r.PriceExact.String); err == nil {
			t.Price = price
		}
	}
	if r.Seat.Valid {
		seat := r.Seat.String
		t.Seat = &seat
	}
	if purchased, err := time.Parse(purchaseDateLayout, r.PurchaseDate); err == nil {
		t.PurchaseDate = purchased
	} else if purchased, err := time.Parse(time.RFC3339Nano, r.PurchaseDate); err == nil {
		t.PurchaseDate = purchased
	}
	return t
}

// initialStatus is expired when the match has already started, upcoming
// otherwise. An unparsable match date or time counts as started.
func (s *Store) initialStatus(in models.TicketInput, now time.Time) models.TicketStatus {
	instant, err := models.MatchInstant(in.MatchDate, in.MatchTime, s.loc)
	if err != nil {
		s.logger.Warn("unparsable match date/time at checkout",
			"match_id", in.MatchID,
			"match_date", in.MatchDate,
			"match_time", in.MatchTime,
			"error", err,
		)
		return models.StatusExpired
	}
	if instant.Before(now) {
		return models.StatusExpired
	}
	return models.StatusUpcoming
}

// CreateTicket persists a ticket after checkout and returns the stored row.
func (s *Store) CreateTicket(ctx context.Context, in models.TicketInput) (ticket *models.Ticket, err error) {
	if s == nil {
		return nil, status.ErrStoreUnavailable
	}
	defer func(start time.Time) { monitoring.TrackStoreOperation("create", start, err) }(time.Now())

	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	initial := s.initialStatus(in, now)

	var seat any
	if in.Seat != nil {
		seat = *in.Seat
	}

	params := dbx.Params{
		"match_id":          in.MatchID,
		"user_id":           in.UserID,
		"seat":              seat,
		"purchase_date":     now.UTC().Format(purchaseDateLayout),
		"match_name":        in.MatchName,
		"match_date":        in.MatchDate,
		"match_time":        in.MatchTime,
		"venue":             in.Venue,
		"ticket_type":       string(in.TicketType),
		"price":             in.Price.InexactFloat64(),
		"price_exact":       in.Price.String(),
		"status":            string(initial),
		"added_to_calendar": 0,
	}

	var id int64
	for attempt := 1; ; attempt++ {
		number, err := utils.GenerateTicketNumber(now)
		if err != nil {
			return nil, fmt.Errorf("generating ticket number: %w", err)
		}
		params["ticket_number"] = number

		res, err := s.db.Insert(ticketsTable, params).WithContext(ctx).Execute()
		if err == nil {
			id, err = res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("reading ticket id: %w", err)
			}
			break
		}
		if !isUniqueViolation(err) || attempt >= maxTicketNumberAttempts {
			return nil, fmt.Errorf("inserting ticket: %w", err)
		}
		s.logger.Warn("ticket number collision, regenerating", "ticket_number", number, "attempt", attempt)
	}

	ticket, err = s.getOne(ctx, dbx.HashExp{"id": id})
	if err != nil {
		return nil, fmt.Errorf("reading created ticket %d: %w", id, err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("created ticket %d vanished", id)
	}

	monitoring.TrackTicketCreated(string(ticket.TicketType), string(ticket.Status))
	s.logger.Info("ticket created",
		"id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"match_id", ticket.MatchID,
		"status", ticket.Status,
	)
	return ticket, nil
}

func (s *Store) getOne(ctx context.Context, where dbx.Expression) (*models.Ticket, error) {
	var row ticketRow
	err := s.db.Select(ticketColumns...).
		From(ticketsTable).
		Where(where).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

// GetTicketByID returns the ticket or nil when there is none. Storage
// errors are logged and reported as not found.
func (s *Store) GetTicketByID(ctx context.Context, id int64) *models.Ticket {
	if s == nil {
		return nil
	}
	start := time.Now()

	ticket, err := s.getOne(ctx, dbx.HashExp{"id": id})
	monitoring.TrackStoreOperation("get_by_id", start, err)
	if err != nil {
		s.logger.Error("failed to read ticket", "id", id, "error", err)
		return nil
	}
	return ticket
}

// GetTicketByNumber looks a ticket up by its unique ticket number.
func (s *Store) GetTicketByNumber(ctx context.Context, number string) *models.Ticket {
	if s == nil {
		return nil
	}
	start := time.Now()

	ticket, err := s.getOne(ctx, dbx.HashExp{"ticket_number": number})
	monitoring.TrackStoreOperation("get_by_number", start, err)
	if err != nil {
		s.logger.Error("failed to read ticket", "ticket_number", number, "error", err)
		return nil
	}
	return ticket
}

// ListTicketsForUser returns the user's tickets, most recent purchase
// first. It never fails: storage errors yield an empty list.
func (s *Store) ListTicketsForUser(ctx context.Context, userID string) []*models.Ticket {
	tickets := []*models.Ticket{}
	if s == nil {
		return tickets
	}
	start := time.Now()

	var rows []ticketRow
	err := s.db.Select(ticketColumns...).
		From(ticketsTable).
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("purchase_date DESC", "id DESC").
		WithContext(ctx).
		All(&rows)
	monitoring.TrackStoreOperation("list_for_user", start, err)
	if err != nil {
		s.logger.Error("failed to list tickets", "user_id", userID, "error", err)
		return tickets
	}

	for _, row := range rows {
		tickets = append(tickets, row.toModel())
	}
	return tickets
}

// UpdateStatus writes the status column only. Callers must request
// forward transitions; the store does not check.
func (s *Store) UpdateStatus(ctx context.Context, id int64, newStatus models.TicketStatus) (err error) {
	if s == nil {
		return status.ErrStoreUnavailable
	}
	defer func(start time.Time) { monitoring.TrackStoreOperation("update_status", start, err) }(time.Now())

	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", status.ErrInvalidTransition, newStatus)
	}

	_, err = s.db.Update(ticketsTable, dbx.Params{"status": string(newStatus)}, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("updating status of ticket %d: %w", id, err)
	}
	return nil
}

// MarkAddedToCalendar sets added_to_calendar. Calling it again is harmless.
func (s *Store) MarkAddedToCalendar(ctx context.Context, id int64) (err error) {
	if s == nil {
		return status.ErrStoreUnavailable
	}
	defer func(start time.Time) { monitoring.TrackStoreOperation("mark_calendar", start, err) }(time.Now())

	_, err = s.db.Update(ticketsTable, dbx.Params{"added_to_calendar": 1}, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("marking ticket %d added to calendar: %w", id, err)
	}
	return nil
}

// DeleteTicket is the administrative hard delete. It reports whether a row
// was removed.
func (s *Store) DeleteTicket(ctx context.Context, id int64) (deleted bool, err error) {
	if s == nil {
		return false, status.ErrStoreUnavailable
	}
	defer func(start time.Time) { monitoring.TrackStoreOperation("delete", start, err) }(time.Now())

	res, err := s.db.Delete(ticketsTable, dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("deleting ticket %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("ticket deleted", "id", id)
	}
	return n > 0, nil
}
