package load

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPosted, StatusMatched, true},
		{StatusPosted, StatusCancelled, true},
		{StatusMatched, StatusBooked, true},
		{StatusMatched, StatusPosted, true},
		{StatusBooked, StatusCompleted, true},
		{StatusPosted, StatusBooked, false},
		{StatusPosted, StatusCompleted, false},
		{StatusCompleted, StatusPosted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPosted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCompletedIsTerminal(t *testing.T) {
	for to := range AllowedTransitions {
		if CanTransition(StatusCompleted, to) {
			t.Fatalf("completed load must be immutable, but %s is reachable", to)
		}
	}
}
