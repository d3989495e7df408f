package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	StatusUpcoming TicketStatus = "upcoming"
	StatusUsed     TicketStatus = "used"
	StatusExpired  TicketStatus = "expired"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusUsed, StatusExpired:
		return true
	}
	return false
}

type TicketType string

const (
	TicketGeneral TicketType = "general"
	TicketVIP     TicketType = "vip"
	TicketPremium TicketType = "premium"
)

func (t TicketType) Valid() bool {
	switch t {
	case TicketGeneral, TicketVIP, TicketPremium:
		return true
	}
	return false
}

// DefaultPrice returns the fixed tier price for a ticket type.
func DefaultPrice(t TicketType) (decimal.Decimal, bool) {
	switch t {
	case TicketGeneral:
		return decimal.NewFromInt(50), true
	case TicketVIP:
		return decimal.NewFromInt(150), true
	case TicketPremium:
		return decimal.NewFromInt(300), true
	}
	return decimal.Zero, false
}

type Ticket struct {
	ID              int64           `json:"id"`
	MatchID         int64           `json:"match_id"`
	UserID          string          `json:"user_id"`
	TicketNumber    string          `json:"ticket_number"`
	Seat            *string         `json:"seat"`
	PurchaseDate    time.Time       `json:"purchase_date"`
	MatchName       string          `json:"match_name"`
	MatchDate       string          `json:"match_date"` // YYYY-MM-DD
	MatchTime       string          `json:"match_time"` // HH:MM or HH:MM:SS
	Venue           string          `json:"venue"`
	TicketType      TicketType      `json:"ticket_type"`
	Price           decimal.Decimal `json:"price"`
	Status          TicketStatus    `json:"status"`
	AddedToCalendar bool            `json:"added_to_calendar"`
}

// Match returns the denormalized match snapshot stored on the ticket.
func (t *Ticket) Match() MatchSnapshot {
	return MatchSnapshot{
		MatchID: t.MatchID,
		Name:    t.MatchName,
		Date:    t.MatchDate,
		Time:    t.MatchTime,
		Venue:   t.Venue,
	}
}

// TicketInput is what the checkout flow supplies; the store computes the rest.
type TicketInput struct {
	MatchID    int64           `json:"match_id"`
	UserID     string          `json:"user_id"`
	Seat       *string         `json:"seat,omitempty"`
	MatchName  string          `json:"match_name"`
	MatchDate  string          `json:"match_date"`
	MatchTime  string          `json:"match_time"`
	Venue      string          `json:"venue"`
	TicketType TicketType      `json:"ticket_type"`
	Price      decimal.Decimal `json:"price"`
}
