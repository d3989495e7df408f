package status

import "errors"

var (
	ErrStoreUnavailable = errors.New("store: local ticket store is not available on this platform")
	ErrTicketNotFound   = errors.New("ticket: ticket not found")
	ErrInvalidTicket    = errors.New("ticket: invalid ticket input")

	ErrInvalidTransition = errors.New("status: transition not allowed")

	ErrCalendarNotAllowed       = errors.New("calendar: ticket cannot be added to the calendar")
	ErrCalendarPermissionDenied = errors.New("calendar: permission denied")
	ErrCalendarUnavailable      = errors.New("calendar: no calendar available")
)
