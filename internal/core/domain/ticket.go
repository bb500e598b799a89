package domain

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// ticketTransitions defines the allowed state machine transitions.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress},
	TicketInProgress: {TicketClosed},
	TicketClosed:     {TicketInProgress},
}

// CanTransitionTo reports whether a transition from the current status to
// next is ever legal, for any actor.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range ticketTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AdminOnlyTransition reports whether the transition, while legal, is
// reserved to admins. Reopening a closed ticket is the only such edge.
func AdminOnlyTransition(from, to TicketStatus) bool {
	return from == TicketClosed && to == TicketInProgress
}

func IsTicketStatus(s string) bool {
	switch TicketStatus(s) {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}
