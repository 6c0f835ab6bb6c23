package chatbot

import (
	"testing"

	"github.com/normanking/switchboard/internal/graph"
)

func TestRouteIsTotal(t *testing.T) {
	tests := []struct {
		name  string
		label MessageType
		want  graph.Decision
	}{
		{"emotional routes to therapist", MessageTypeEmotional, RouteTherapist},
		{"logical routes to logical", MessageTypeLogical, RouteLogical},
		{"unset label defaults to logical", "", RouteLogical},
		{"unknown label defaults to logical", MessageType("sarcastic"), RouteLogical},
		{"case matters, Emotional is not emotional", MessageType("Emotional"), RouteLogical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.label); got != tt.want {
				t.Errorf("Route(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestIsAffirmative(t *testing.T) {
	affirmative := []string{"yes", "YES", "Yes", "  yes  "}
	for _, s := range affirmative {
		if !IsAffirmative(s) {
			t.Errorf("IsAffirmative(%q) = false, want true", s)
		}
	}
	negative := []string{"no", "", "yeah", "y", "yes please", "nope"}
	for _, s := range negative {
		if IsAffirmative(s) {
			t.Errorf("IsAffirmative(%q) = true, want false", s)
		}
	}
}
