package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// Brand is a motorcycle manufacturer known to the profile form
type Brand struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Brands lists the manufacturers offered by the profile form
var Brands = []Brand{
	{Name: "Aprilia", Logo: "/brands/aprilia.svg"},
	{Name: "Benelli", Logo: "/brands/benelli.svg"},
	{Name: "BMW", Logo: "/brands/bmw.svg"},
	{Name: "CF Moto", Logo: "/brands/cfmoto.svg"},
	{Name: "Ducati", Logo: "/brands/ducati.svg"},
	{Name: "Harley-Davidson", Logo: "/brands/harley-davidson.svg"},
	{Name: "Honda", Logo: "/brands/honda.svg"},
	{Name: "Husqvarna", Logo: "/brands/husqvarna.svg"},
	{Name: "Indian", Logo: "/brands/indian.svg"},
	{Name: "Kawasaki", Logo: "/brands/kawasaki.svg"},
	{Name: "KTM", Logo: "/brands/ktm.svg"},
	{Name: "Moto Guzzi", Logo: "/brands/moto-guzzi.svg"},
	{Name: "MV Agusta", Logo: "/brands/mv-agusta.svg"},
	{Name: "Royal Enfield", Logo: "/brands/royal-enfield.svg"},
	{Name: "Suzuki", Logo: "/brands/suzuki.svg"},
	{Name: "Triumph", Logo: "/brands/triumph.svg"},
	{Name: "Yamaha", Logo: "/brands/yamaha.svg"},
}

// brandsByLength is Brands sorted longest name first so "Moto Guzzi" wins over shorter prefixes.
var brandsByLength = func() []Brand {
	sorted := append([]Brand(nil), Brands...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Name) > len(sorted[j].Name) })
	return sorted
}()

// ParseBikeModel splits a stored "Brand Model" string. An unknown brand
// leaves the whole string as the model.
func ParseBikeModel(bike string) (brand, model string) {
	bike = strings.TrimSpace(bike)
	if bike == "" {
		return "", ""
	}
	for _, b := range brandsByLength {
		if len(bike) >= len(b.Name) && strings.EqualFold(bike[:len(b.Name)], b.Name) {
			return b.Name, strings.TrimSpace(bike[len(b.Name):])
		}
	}
	return "", bike
}

// ComposeBikeModel joins brand and model; both empty means no bike.
func ComposeBikeModel(brand, model string) *string {
	full := strings.TrimSpace(strings.TrimSpace(brand) + " " + strings.TrimSpace(model))
	if full == "" {
		return nil
	}
	return &full
}

// BrandLogo returns the logo of the bike's brand, or "" if unknown.
func BrandLogo(bike string) string {
	brand, _ := ParseBikeModel(bike)
	for _, b := range Brands {
		if b.Name == brand {
			return b.Logo
		}
	}
	return ""
}

// ProfileService reads and edits the caller's profile
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	Update(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type profileServiceImpl struct {
	profileRepo ProfileStore
	logger      zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo ProfileStore, logger zerolog.Logger) ProfileService {
	return &profileServiceImpl{profileRepo: profileRepo, logger: logger}
}

func (s *profileServiceImpl) Get(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewProfileResponse(profile), nil
}

func (s *profileServiceImpl) Update(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.ErrUsernameRequired
	}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Username = username
	profile.BikeModel = ComposeBikeModel(req.BikeBrand, req.BikeModel)
	if req.AvatarURL != nil {
		profile.AvatarURL = optional(*req.AvatarURL)
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info().Str("userID", userID.String()).Msg("Profile updated")
	return NewProfileResponse(profile), nil
}

// NewProfileResponse maps a profile and splits the bike back into parts.
func NewProfileResponse(p *models.Profile) *dto.ProfileResponse {
	resp := &dto.ProfileResponse{
		ID:        p.ID,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		Bike:      p.BikeModel,
		CreatedAt: p.CreatedAt,
	}
	if p.BikeModel != nil {
		resp.BikeBrand, resp.BikeModel = ParseBikeModel(*p.BikeModel)
		resp.BrandLogo = BrandLogo(*p.BikeModel)
	}
	return resp
}
