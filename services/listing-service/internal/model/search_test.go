package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSearchFilterMatches(t *testing.T) {
	loft := Listing{Title: "Harbour Loft", City: "Oslo", PricePerNight: 120, Published: true, Details: ListingDetails{Bedrooms: 2}}

	cases := []struct {
		name string
		f    SearchFilter
		want bool
	}{
		{"no bounds", SearchFilter{}, true},
		{"words across title and city", SearchFilter{Words: SearchWords("  loft OSLO ")}, true},
		{"missing word", SearchFilter{Words: SearchWords("loft bergen")}, false},
		{"price in range", SearchFilter{PriceMin: 100, PriceMax: 120}, true},
		{"price too high", SearchFilter{PriceMax: 119}, false},
		{"bedrooms in range", SearchFilter{BedroomsMin: 2, BedroomsMax: 2}, true},
		{"too few bedrooms", SearchFilter{BedroomsMin: 3}, false},
	}
	for _, tc := range cases {
		if got := tc.f.Matches(loft); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	hidden := loft
	hidden.Published = false
	if (SearchFilter{}).Matches(hidden) {
		t.Fatalf("unpublished listings must never match")
	}
}

func TestSortListings(t *testing.T) {
	listings := []Listing{
		{ID: "3", Title: "cabin", Reviews: ReviewSummary{Average: 4}},
		{ID: "1", Title: "Attic", Reviews: ReviewSummary{Average: 2}},
		{ID: "2", Title: "Barn", Reviews: ReviewSummary{Average: 4}},
	}
	ids := func() []string {
		out := make([]string, 0, len(listings))
		for _, l := range listings {
			out = append(out, l.ID)
		}
		return out
	}

	cases := []struct {
		by   SearchSort
		want []string
	}{
		{SortTitle, []string{"1", "2", "3"}},
		{SortRatingDesc, []string{"2", "3", "1"}},
		{SortRatingAsc, []string{"1", "2", "3"}},
	}
	for _, tc := range cases {
		SortListings(listings, tc.by)
		if diff := cmp.Diff(tc.want, ids()); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.by, diff)
		}
	}
}

func TestParseSearchSort(t *testing.T) {
	if s, ok := ParseSearchSort(""); !ok || s != SortTitle {
		t.Fatalf("empty sort should default to title, got %q %v", s, ok)
	}
	if s, ok := ParseSearchSort(" rating_desc "); !ok || s != SortRatingDesc {
		t.Fatalf("unexpected %q %v", s, ok)
	}
	if _, ok := ParseSearchSort("price"); ok {
		t.Fatalf("expected unknown sort to be rejected")
	}
}
