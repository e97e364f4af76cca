package model

import (
	"cmp"
	"slices"
	"strings"
)

// SearchFilter narrows the published listings a guest browses. Zero values
// leave a bound open.
type SearchFilter struct {
	// Words must each appear in the title or the city, ignoring case.
	Words       []string
	PriceMin    int64
	PriceMax    int64
	BedroomsMin int
	BedroomsMax int
	Limit       int
}

// SearchWords splits a free text query into lower case words.
func SearchWords(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// Matches applies the filter in memory, the same way the database query does.
func (f SearchFilter) Matches(l Listing) bool {
	if !l.Published {
		return false
	}
	text := strings.ToLower(l.Title + " " + l.City)
	for _, w := range f.Words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	switch {
	case f.PriceMin > 0 && l.PricePerNight < f.PriceMin:
		return false
	case f.PriceMax > 0 && l.PricePerNight > f.PriceMax:
		return false
	case f.BedroomsMin > 0 && l.Details.Bedrooms < f.BedroomsMin:
		return false
	case f.BedroomsMax > 0 && l.Details.Bedrooms > f.BedroomsMax:
		return false
	}
	return true
}

type SearchSort string

const (
	SortTitle      SearchSort = "title"
	SortRatingDesc SearchSort = "rating_desc"
	SortRatingAsc  SearchSort = "rating_asc"
)

func ParseSearchSort(raw string) (SearchSort, bool) {
	switch s := SearchSort(strings.TrimSpace(raw)); s {
	case "":
		return SortTitle, true
	case SortTitle, SortRatingDesc, SortRatingAsc:
		return s, true
	}
	return "", false
}

// SortListings orders listings in place. Ties in rating, and the title sort
// itself, fall back to the title alphabetically and then the id.
func SortListings(listings []Listing, by SearchSort) {
	slices.SortStableFunc(listings, func(a, b Listing) int {
		var c int
		switch by {
		case SortRatingDesc:
			c = cmp.Compare(b.Reviews.Average, a.Reviews.Average)
		case SortRatingAsc:
			c = cmp.Compare(a.Reviews.Average, b.Reviews.Average)
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
