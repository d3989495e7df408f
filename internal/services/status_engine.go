package services

import (
	"time"

	"matchday-tickets/models"
	"matchday-tickets/utils"
)

// Evaluation is the effective status of a ticket at a point in time.
type Evaluation struct {
	Status models.TicketStatus `json:"status"`
	// NeedsRepair is set when the stored status is upcoming but the match
	// has started; the stored row should be corrected to expired.
	NeedsRepair bool `json:"-"`
}

// Countdown is the time left until kickoff. Past is set, with all other
// fields zero, once kickoff is reached or when no countdown applies.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Past    bool `json:"past"`
}

// Remaining converts the countdown back to a duration.
func (c Countdown) Remaining() time.Duration {
	return time.Duration(c.Days)*24*time.Hour +
		time.Duration(c.Hours)*time.Hour +
		time.Duration(c.Minutes)*time.Minute +
		time.Duration(c.Seconds)*time.Second
}

// StatusEngine derives effective ticket status from the stored status and
// the wall clock. It never writes.
type StatusEngine struct {
	clock utils.Clock
	loc   *time.Location
}

func NewStatusEngine(clock utils.Clock, loc *time.Location) *StatusEngine {
	if clock == nil {
		clock = utils.RealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &StatusEngine{clock: clock, loc: loc}
}

func (e *StatusEngine) Now() time.Time {
	return e.clock.Now()
}

func (e *StatusEngine) matchInstant(t *models.Ticket) (time.Time, bool) {
	instant, err := models.MatchInstant(t.MatchDate, t.MatchTime, e.loc)
	return instant, err == nil
}

// Evaluate returns the effective status. Used and expired are sticky. An
// upcoming ticket whose match has started is expired and flagged for
// repair. A ticket whose match date or time cannot be parsed is treated as
// expired without a repair request.
func (e *StatusEngine) Evaluate(t *models.Ticket) Evaluation {
	switch t.Status {
	case models.StatusUsed, models.StatusExpired:
		return Evaluation{Status: t.Status}
	}

	instant, ok := e.matchInstant(t)
	if !ok {
		return Evaluation{Status: models.StatusExpired}
	}
	if instant.Before(e.clock.Now()) {
		return Evaluation{Status: models.StatusExpired, NeedsRepair: t.Status == models.StatusUpcoming}
	}
	return Evaluation{Status: models.StatusUpcoming}
}

// Countdown is recomputed from the match instant on every call.
func (e *StatusEngine) Countdown(t *models.Ticket) Countdown {
	if e.Evaluate(t).Status != models.StatusUpcoming {
		return Countdown{Past: true}
	}

	instant, ok := e.matchInstant(t)
	if !ok {
		return Countdown{Past: true}
	}

	remaining := instant.Sub(e.clock.Now())
	if remaining <= 0 {
		return Countdown{Past: true}
	}

	total := int64(remaining / time.Second)
	return Countdown{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

// CanAddToCalendar is the guard for the calendar flow.
func (e *StatusEngine) CanAddToCalendar(t *models.Ticket) bool {
	return !t.AddedToCalendar && e.Evaluate(t).Status == models.StatusUpcoming
}

// CanTransition reports whether a stored status may move from one value
// to another. Only upcoming has successors.
func CanTransition(from, to models.TicketStatus) bool {
	return from == models.StatusUpcoming && (to == models.StatusUsed || to == models.StatusExpired)
}
