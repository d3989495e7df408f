package models

import (
	"fmt"
	"strings"

	"matchday-tickets/internal/status"

	"github.com/shopspring/decimal"
)

// CheckoutRequest is sent by the checkout screen once the (simulated)
// payment has gone through. UserID may be empty for guest purchases.
type CheckoutRequest struct {
	MatchID    int64            `json:"match_id"`
	UserID     string           `json:"user_id"`
	Seat       *string          `json:"seat,omitempty"`
	MatchName  string           `json:"match_name"`
	MatchDate  string           `json:"match_date"`
	MatchTime  string           `json:"match_time"`
	Venue      string           `json:"venue"`
	TicketType TicketType       `json:"ticket_type"`
	Price      *decimal.Decimal `json:"price,omitempty"`
}

// ToInput resolves the tier price and owner into a store input.
func (r CheckoutRequest) ToInput(userID string) (TicketInput, error) {
	price, ok := DefaultPrice(r.TicketType)
	if !ok {
		return TicketInput{}, fmt.Errorf("%w: unknown ticket type %q", status.ErrInvalidTicket, r.TicketType)
	}
	if r.Price != nil {
		price = *r.Price
	}

	in := TicketInput{
		MatchID:    r.MatchID,
		UserID:     userID,
		Seat:       r.Seat,
		MatchName:  r.MatchName,
		MatchDate:  r.MatchDate,
		MatchTime:  r.MatchTime,
		Venue:      r.Venue,
		TicketType: r.TicketType,
		Price:      price,
	}
	return in, in.Validate()
}

// Validate checks the fields the store cannot derive. Match date and time
// are taken as-is: they are a snapshot of remote data.
func (in TicketInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", status.ErrInvalidTicket)
	}
	if strings.TrimSpace(in.MatchName) == "" {
		return fmt.Errorf("%w: match name is required", status.ErrInvalidTicket)
	}
	if strings.TrimSpace(in.Venue) == "" {
		return fmt.Errorf("%w: venue is required", status.ErrInvalidTicket)
	}
	if !in.TicketType.Valid() {
		return fmt.Errorf("%w: unknown ticket type %q", status.ErrInvalidTicket, in.TicketType)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", status.ErrInvalidTicket)
	}
	return nil
}
