package models

import "time"

// SupportTicket is a user-submitted report handled from the admin panel.
type SupportTicket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket type constants.
const (
	TicketTypeError      = "error"
	TicketTypeSuggestion = "suggestion"
	TicketTypeQuestion   = "question"
)

// Ticket status constants.
const (
	TicketStatusOpen     = "open"
	TicketStatusResolved = "resolved"
)

// ValidTicketTypes is the set of allowed ticket types.
var ValidTicketTypes = map[string]bool{
	TicketTypeError:      true,
	TicketTypeSuggestion: true,
	TicketTypeQuestion:   true,
}

// ValidTicketStatuses is the set of allowed ticket statuses.
var ValidTicketStatuses = map[string]bool{
	TicketStatusOpen:     true,
	TicketStatusResolved: true,
}
