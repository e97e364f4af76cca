package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/staybook/services/listing-service/internal/model"
)

func TestTransitionRejectsUnknownTarget(t *testing.T) {
	r := &Repository{}
	_, err := r.transition(context.Background(), "b-1", model.BookingPending, nil)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before touching the database, got %v", err)
	}
}

func TestTransitionEventsCoverEveryTarget(t *testing.T) {
	for _, to := range []model.BookingStatus{model.BookingAccepted, model.BookingDeclined, model.BookingCancelled} {
		if transitionEvents[to] == "" {
			t.Fatalf("no event type for %s", to)
		}
	}
}

func TestLikeEscaperQuotesWildcards(t *testing.T) {
	cases := map[string]string{
		"oslo":    "oslo",
		"100%":    `100\%`,
		"a_b":     `a\_b`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range cases {
		if got := likeEscaper.Replace(in); got != want {
			t.Fatalf("likeEscaper(%q) = %q, want %q", in, got, want)
		}
	}
}
