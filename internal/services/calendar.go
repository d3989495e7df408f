package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"matchday-tickets/internal/status"
	"matchday-tickets/models"
	"matchday-tickets/utils"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const matchDuration = 2 * time.Hour

// Calendar is the device calendar, used as a write-only sink. Failures
// must wrap status.ErrCalendarPermissionDenied or
// status.ErrCalendarUnavailable.
type Calendar interface {
	CreateEvent(ctx context.Context, event CalendarEvent) (string, error)
}

type CalendarEvent struct {
	Title    string
	Start    time.Time
	End      time.Time
	TimeZone string
	Location string
	Notes    string
	// Alarms are offsets relative to Start; negative means before.
	Alarms []time.Duration
}

// NewMatchEvent builds the calendar entry for a ticket whose match starts
// at kickoff.
func NewMatchEvent(t *models.Ticket, kickoff time.Time) CalendarEvent {
	notes := []string{
		"Ticket: " + t.TicketNumber,
		"Type: " + string(t.TicketType),
	}
	if t.Seat != nil && *t.Seat != "" {
		notes = append(notes, "Seat: "+*t.Seat)
	}

	return CalendarEvent{
		Title:    t.MatchName,
		Start:    kickoff,
		End:      kickoff.Add(matchDuration),
		TimeZone: kickoff.Location().String(),
		Location: t.Venue,
		Notes:    strings.Join(notes, "\n"),
		Alarms:   []time.Duration{-24 * time.Hour, -time.Hour},
	}
}

// alarmTrigger renders a negative offset as an iCalendar duration, e.g. -PT1H.
func alarmTrigger(offset time.Duration) string {
	sign := ""
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	minutes := int64(offset / time.Minute)
	if minutes%60 == 0 {
		return fmt.Sprintf("%sPT%dH", sign, minutes/60)
	}
	return fmt.Sprintf("%sPT%dM", sign, minutes)
}

// ICSCalendar writes each event as an .ics file into Dir, where the
// device calendar (or the user) picks it up. A nil Clock means the wall
// clock.
type ICSCalendar struct {
	Dir   string
	Clock utils.Clock
}

func NewICSCalendar(dir string) *ICSCalendar {
	return &ICSCalendar{Dir: dir, Clock: utils.RealClock()}
}

func (c *ICSCalendar) CreateEvent(ctx context.Context, event CalendarEvent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Dir == "" {
		return "", fmt.Errorf("%w: calendar directory not configured", status.ErrCalendarUnavailable)
	}

	info, err := os.Stat(c.Dir)
	switch {
	case errors.Is(err, os.ErrPermission):
		return "", fmt.Errorf("%w: %v", status.ErrCalendarPermissionDenied, err)
	case err != nil:
		return "", fmt.Errorf("%w: %v", status.ErrCalendarUnavailable, err)
	case !info.IsDir():
		return "", fmt.Errorf("%w: %s is not a directory", status.ErrCalendarUnavailable, c.Dir)
	}

	clock := c.Clock
	if clock == nil {
		clock = utils.RealClock()
	}

	eventID := uuid.NewString()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//matchday-tickets//calendar//EN")
	if event.TimeZone != "" {
		cal.SetXWRTimezone(event.TimeZone)
	}

	vevent := cal.AddEvent(eventID + "@matchday-tickets")
	vevent.SetDtStampTime(clock.Now())
	vevent.SetStartAt(event.Start)
	vevent.SetEndAt(event.End)
	vevent.SetSummary(event.Title)
	vevent.SetLocation(event.Location)
	vevent.SetDescription(event.Notes)
	for _, offset := range event.Alarms {
		alarm := vevent.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(alarmTrigger(offset))
		alarm.SetDescription(event.Title)
	}

	path := filepath.Join(c.Dir, eventID+".ics")
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o600); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %v", status.ErrCalendarPermissionDenied, err)
		}
		return "", fmt.Errorf("%w: %v", status.ErrCalendarUnavailable, err)
	}

	return eventID, nil
}
