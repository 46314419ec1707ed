// README: Google Places lookup used to enrich generated activities.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

var ErrNoPlace = errors.New("no matching place")

// Place represents a simplified location result.
type Place struct {
	Name             string
	Address          string
	Rating           float32
	PlaceID          string
	UserRatingsTotal int
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client *maps.Client
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey string) (*PlacesService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client}, nil
}

// Lookup finds the best match for an activity title near area.
func (s *PlacesService) Lookup(ctx context.Context, title, area string) (*Place, error) {
	query := strings.TrimSpace(title)
	if area != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(area)) {
		query = fmt.Sprintf("%s, %s", query, area)
	}

	r := &maps.TextSearchRequest{
		Query:    query,
		Language: "en",
		Region:   "EG",
	}
	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	best := pickPlace(resp.Results)
	if best == nil {
		return nil, ErrNoPlace
	}
	return best, nil
}

// pickPlace returns the first result with the most ratings among the top three.
func pickPlace(results []maps.PlacesSearchResult) *Place {
	var best *Place
	for i, result := range results {
		if i >= 3 {
			break
		}
		if best != nil && result.UserRatingsTotal <= best.UserRatingsTotal {
			continue
		}
		best = &Place{
			Name:             result.Name,
			Address:          result.FormattedAddress,
			Rating:           result.Rating,
			PlaceID:          result.PlaceID,
			UserRatingsTotal: result.UserRatingsTotal,
		}
	}
	return best
}
