package domain

import "testing"

func TestTicketTransitions(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		ok       bool
	}{
		{TicketOpen, TicketInProgress, true},
		{TicketInProgress, TicketClosed, true},
		{TicketClosed, TicketInProgress, true},
		{TicketOpen, TicketClosed, false},
		{TicketClosed, TicketOpen, false},
		{TicketInProgress, TicketOpen, false},
		{TicketOpen, TicketOpen, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestAdminOnlyTransition(t *testing.T) {
	if !AdminOnlyTransition(TicketClosed, TicketInProgress) {
		t.Fatalf("reopen should be admin-only")
	}
	if AdminOnlyTransition(TicketOpen, TicketInProgress) {
		t.Fatalf("open -> in_progress should not be admin-only")
	}
	if AdminOnlyTransition(TicketInProgress, TicketClosed) {
		t.Fatalf("in_progress -> closed should not be admin-only")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":   RoleAdmin,
		"user":    RoleUser,
		"":        RoleUser,
		"ADMIN":   RoleUser,
		"manager": RoleUser,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Errorf("ParseRole(%q) = %v, want %v", input, got, want)
		}
	}
}
