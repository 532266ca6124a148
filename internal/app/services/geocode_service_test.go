package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/geocode"
)

type fakePlaces struct {
	keys []string
	err  error
}

func (p *fakePlaces) Search(ctx context.Context, key, query string) ([]geocode.Place, error) {
	p.keys = append(p.keys, key)
	if p.err != nil {
		return nil, p.err
	}
	return []geocode.Place{{DisplayName: "Passo dello Stelvio, Bormio", Lat: 46.5286, Lon: 10.4531}}, nil
}

func TestGeocodeSearchKeysByUser(t *testing.T) {
	places := &fakePlaces{}
	svc := NewGeocodeService(places)
	user := uuid.New()

	results, err := svc.Search(context.Background(), user, "stelvio")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].DisplayName != "Passo dello Stelvio, Bormio" {
		t.Fatalf("results = %+v", results)
	}
	if len(places.keys) != 1 || places.keys[0] != user.String() {
		t.Fatalf("debounce key = %v", places.keys)
	}
}

func TestGeocodeSearchKeepsSupersededKind(t *testing.T) {
	svc := NewGeocodeService(&fakePlaces{err: apperrors.ErrSuperseded})

	_, err := svc.Search(context.Background(), uuid.New(), "stelvio")
	if !errors.Is(err, apperrors.ErrSuperseded) {
		t.Fatalf("err = %v", err)
	}
	assertKind(t, err, apperrors.KindConflict)
}
