package maps

import (
	"testing"

	"googlemaps.github.io/maps"
)

func TestPickPlacePrefersMostRated(t *testing.T) {
	results := []maps.PlacesSearchResult{
		{Name: "Giza Souvenirs", UserRatingsTotal: 12, Rating: 4.1},
		{Name: "Pyramids of Giza", UserRatingsTotal: 90000, Rating: 4.7, PlaceID: "p1"},
		{Name: "Giza Plateau Gate", UserRatingsTotal: 300},
		{Name: "Far away", UserRatingsTotal: 1_000_000},
	}
	got := pickPlace(results)
	if got == nil || got.PlaceID != "p1" {
		t.Fatalf("pickPlace = %+v", got)
	}
	if pickPlace(nil) != nil {
		t.Error("no results should give nil")
	}
}
