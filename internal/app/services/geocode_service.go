package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models/dto"
)

// GeocodeService resolves meeting points for the ride form
type GeocodeService interface {
	// Search is debounced per user; a newer query supersedes a pending one.
	Search(ctx context.Context, userID uuid.UUID, query string) ([]dto.GeocodeResult, error)
}

type geocodeServiceImpl struct {
	places PlaceSearcher
}

// NewGeocodeService creates a new GeocodeService
func NewGeocodeService(places PlaceSearcher) GeocodeService {
	return &geocodeServiceImpl{places: places}
}

func (s *geocodeServiceImpl) Search(ctx context.Context, userID uuid.UUID, query string) ([]dto.GeocodeResult, error) {
	places, err := s.places.Search(ctx, userID.String(), query)
	if err != nil {
		return nil, fmt.Errorf("error searching places: %w", err)
	}

	results := make([]dto.GeocodeResult, 0, len(places))
	for _, p := range places {
		results = append(results, dto.GeocodeResult{DisplayName: p.DisplayName, Lat: p.Lat, Lon: p.Lon})
	}
	return results, nil
}
