package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
	"github.com/yigit/motobuddies/internal/pkg/filestorage"
	"github.com/yigit/motobuddies/internal/pkg/gpx"
)

const (
	dashboardLimit = 50
	// MaxGPXUploadBytes bounds an uploaded track
	MaxGPXUploadBytes = 10 << 20

	WeatherReasonPastRide = "WEATHER_PAST_RIDE"
)

// GPXUpload is a track file sent along with a new ride
type GPXUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateRideInput is a validated ride creation request
type CreateRideInput struct {
	GroupID          uuid.UUID
	Title            string
	Description      string
	DateTime         time.Time
	StartLat         float64
	StartLon         float64
	MeetingPointName string
}

// RideService manages rides and the views built from them
type RideService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateRideInput, upload *GPXUpload) (*models.Ride, error)
	Detail(ctx context.Context, rideID, userID uuid.UUID) (*dto.RideDetailResponse, error)
	Delete(ctx context.Context, rideID, userID uuid.UUID) error
	RemoveGPX(ctx context.Context, rideID, userID uuid.UUID) error
	GPXSummary(ctx context.Context, rideID, userID uuid.UUID) (*dto.GPXSummaryResponse, error)
	Weather(ctx context.Context, rideID, userID uuid.UUID) (*dto.WeatherResponse, error)
	ListGroupRides(ctx context.Context, groupID, userID uuid.UUID) ([]*models.RideSummary, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*dto.DashboardResponse, error)
	Calendar(ctx context.Context, userID uuid.UUID, year, month int) (*dto.CalendarResponse, error)
}

type rideServiceImpl struct {
	rideRepo        RideStore
	participantRepo ParticipantStore
	profileRepo     ProfileStore
	membership      MembershipService
	notifications   NotificationService
	blobs           filestorage.BlobStore
	tracks          TrackFetcher
	forecaster      Forecaster
	location        *time.Location
	now             func() time.Time
	logger          zerolog.Logger
}

// RideServiceDeps groups the collaborators of the ride service
type RideServiceDeps struct {
	Rides         RideStore
	Participants  ParticipantStore
	Profiles      ProfileStore
	Membership    MembershipService
	Notifications NotificationService
	Blobs         filestorage.BlobStore
	Tracks        TrackFetcher
	Forecaster    Forecaster
	// Location buckets rides into calendar days; defaults to UTC
	Location *time.Location
	Now      func() time.Time
}

// NewRideService creates a new RideService
func NewRideService(deps RideServiceDeps, logger zerolog.Logger) RideService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &rideServiceImpl{
		rideRepo:        deps.Rides,
		participantRepo: deps.Participants,
		profileRepo:     deps.Profiles,
		membership:      deps.Membership,
		notifications:   deps.Notifications,
		blobs:           deps.Blobs,
		tracks:          deps.Tracks,
		forecaster:      deps.Forecaster,
		location:        loc,
		now:             now,
		logger:          logger,
	}
}

// ParseRideTime accepts RFC 3339 or a local "2006-01-02T15:04" value read in loc.
func ParseRideTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.NewValidationError("dateTime", "dateTime must be an RFC 3339 timestamp")
}

func (s *rideServiceImpl) Create(ctx context.Context, userID uuid.UUID, in CreateRideInput, upload *GPXUpload) (*models.Ride, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.ErrRideTitleRequired
	}
	if in.StartLat < -90 || in.StartLat > 90 || in.StartLon < -180 || in.StartLon > 180 {
		return nil, apperrors.ErrInvalidCoordinate
	}
	if _, err := s.membership.RequireMember(ctx, in.GroupID, userID); err != nil {
		return nil, err
	}

	ride := &models.Ride{
		GroupID:          in.GroupID,
		CreatedBy:        userID,
		Title:            title,
		Description:      optional(in.Description),
		DateTime:         in.DateTime,
		StartLat:         in.StartLat,
		StartLon:         in.StartLon,
		MeetingPointName: optional(in.MeetingPointName),
	}

	if upload != nil {
		url, err := s.storeTrack(ctx, userID, upload)
		if err != nil {
			return nil, err
		}
		ride.GPXURL = &url
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		if ride.GPXURL != nil {
			s.deleteBlob(ctx, *ride.GPXURL)
		}
		return nil, err
	}

	s.logger.Info().
		Str("rideID", ride.ID.String()).
		Str("groupID", ride.GroupID.String()).
		Str("creatorID", userID.String()).
		Msg("Ride created")

	if s.notifications != nil {
		draft := models.NotificationDraft{
			Type:  models.NotificationNewRide,
			Title: "New ride",
			Body:  fmt.Sprintf("%s planned %s on %s", usernameOf(ctx, s.profileRepo, userID), ride.Title, ride.DateTime.In(s.location).Format("Mon 2 Jan 15:04")),
			Link:  linkTo("/rides/%s", ride.ID),
		}
		if _, err := s.notifications.NotifyGroup(ctx, ride.GroupID, userID, draft); err != nil {
			s.logger.Error().Err(err).Str("rideID", ride.ID.String()).Msg("new_ride fan-out failed")
		}
	}

	return ride, nil
}

// storeTrack rejects unparsable files before they reach the bucket.
func (s *rideServiceImpl) storeTrack(ctx context.Context, userID uuid.UUID, upload *GPXUpload) (string, error) {
	if s.blobs == nil {
		return "", apperrors.ErrBlobStorage.Wrap(errors.New("no blob store configured"))
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, MaxGPXUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}
	if len(data) > MaxGPXUploadBytes {
		return "", apperrors.NewValidationError("gpx", "GPX file is too large")
	}
	if _, err := gpx.Parse(data); err != nil {
		return "", err
	}

	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/gpx+xml"
	}

	key := filestorage.ObjectKey(userID, upload.Filename, s.now())
	url, err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", apperrors.ErrBlobStorage.Wrap(err)
	}
	return url, nil
}

func (s *rideServiceImpl) Detail(ctx context.Context, rideID, userID uuid.UUID) (*dto.RideDetailResponse, error) {
	ride, err := s.memberRide(ctx, rideID, userID)
	if err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByRides(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("error listing participants: %w", err)
	}

	resp := &dto.RideDetailResponse{
		Ride:            ride.Ride,
		GroupName:       ride.GroupName,
		CreatorUsername: usernameOf(ctx, s.profileRepo, ride.CreatedBy),
		Participants:    make([]dto.ParticipantResponse, 0, len(participants)),
		MyStatus:        models.RSVPNone,
		IsCreator:       ride.CreatedBy == userID,
		IsPast:          ride.IsPast(s.now()),
	}
	for _, p := range participants {
		resp.Participants = append(resp.Participants, dto.NewParticipantResponse(p))
		switch p.Status {
		case models.RSVPAttending:
			resp.AttendingCount++
		case models.RSVPMaybe:
			resp.MaybeCount++
		}
		if p.UserID == userID {
			resp.MyStatus = p.Status
		}
	}
	return resp, nil
}

// Delete removes the ride and its RSVPs in one transaction, then the track.
// A failed blob delete leaves an orphan object and is only logged.
func (s *rideServiceImpl) Delete(ctx context.Context, rideID, userID uuid.UUID) error {
	ride, err := s.creatorRide(ctx, rideID, userID)
	if err != nil {
		return err
	}

	if err := s.rideRepo.Delete(ctx, rideID); err != nil {
		return err
	}

	if ride.GPXURL != nil {
		s.deleteBlob(ctx, *ride.GPXURL)
	}

	s.logger.Info().Str("rideID", rideID.String()).Str("userID", userID.String()).Msg("Ride deleted")
	return nil
}

func (s *rideServiceImpl) RemoveGPX(ctx context.Context, rideID, userID uuid.UUID) error {
	ride, err := s.creatorRide(ctx, rideID, userID)
	if err != nil {
		return err
	}
	if ride.GPXURL == nil {
		return apperrors.ErrNoGPX
	}

	if s.blobs != nil {
		if key, ok := s.blobs.KeyFromURL(*ride.GPXURL); ok {
			if err := s.blobs.Delete(ctx, key); err != nil {
				return apperrors.ErrBlobStorage.Wrap(err)
			}
		}
	}

	if err := s.rideRepo.SetGPXURL(ctx, rideID, nil); err != nil {
		return err
	}

	s.logger.Info().Str("rideID", rideID.String()).Msg("Ride track removed")
	return nil
}

func (s *rideServiceImpl) GPXSummary(ctx context.Context, rideID, userID uuid.UUID) (*dto.GPXSummaryResponse, error) {
	ride, err := s.memberRide(ctx, rideID, userID)
	if err != nil {
		return nil, err
	}
	if ride.GPXURL == nil {
		return nil, apperrors.ErrNoGPX
	}

	summary, err := s.tracks.FetchAndSummarize(ctx, *ride.GPXURL)
	if err != nil {
		return nil, err
	}
	return NewGPXSummaryResponse(summary), nil
}

// NewGPXSummaryResponse maps a summary to the map widget payload.
func NewGPXSummaryResponse(summary gpx.Summary) *dto.GPXSummaryResponse {
	resp := &dto.GPXSummaryResponse{
		Found:          summary.Found,
		DistanceKm:     round1(summary.DistanceKm),
		ElevationGainM: math.Round(summary.ElevationGainM),
		ElevationLossM: math.Round(summary.ElevationLossM),
		PointCount:     len(summary.Points),
	}
	if !summary.Found {
		return resp
	}
	resp.Points = make([][2]float64, 0, len(summary.Points))
	for _, p := range summary.Points {
		resp.Points = append(resp.Points, [2]float64{p.Lat, p.Lon})
	}
	b := summary.Bounds
	resp.Bounds = &[4]float64{b.MinLat, b.MinLon, b.MaxLat, b.MaxLon}
	return resp
}

// Weather never fails because of the forecast provider; the widget reports
// why no forecast is available instead.
func (s *rideServiceImpl) Weather(ctx context.Context, rideID, userID uuid.UUID) (*dto.WeatherResponse, error) {
	ride, err := s.memberRide(ctx, rideID, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.WeatherResponse{DaysAhead: round1(s.forecaster.DaysAhead(ride.DateTime))}
	if ride.IsPast(s.now()) {
		resp.Reason = WeatherReasonPastRide
		resp.Message = "ride already started"
		return resp, nil
	}

	forecast, err := s.forecaster.ForecastAt(ctx, ride.StartLat, ride.StartLon, ride.DateTime)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ce *apperrors.CustomError
		if errors.As(err, &ce) {
			resp.Reason = ce.Code
			resp.Message = ce.Message
		} else {
			resp.Reason = apperrors.ErrWeatherUpstream.Code
			resp.Message = apperrors.ErrWeatherUpstream.Message
		}
		s.logger.Warn().Err(err).Str("rideID", rideID.String()).Msg("Forecast unavailable")
		return resp, nil
	}

	resp.Available = true
	resp.TemperatureC = int(math.Round(forecast.TemperatureC))
	resp.PrecipitationProbability = forecast.PrecipitationProbability
	resp.WeatherCode = forecast.WeatherCode
	resp.Description = forecast.Description()
	resp.WindSpeedKmh = int(math.Round(forecast.WindSpeedKmh))
	resp.Rainy = forecast.Rainy()
	resp.Hour = forecast.Hour
	return resp, nil
}

func (s *rideServiceImpl) ListGroupRides(ctx context.Context, groupID, userID uuid.UUID) ([]*models.RideSummary, error) {
	if _, err := s.membership.RequireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	rides, err := s.rideRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("error listing group rides: %w", err)
	}
	return rides, nil
}

func (s *rideServiceImpl) Dashboard(ctx context.Context, userID uuid.UUID) (*dto.DashboardResponse, error) {
	hasGroup, err := s.membership.HasAnyGroup(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := &dto.DashboardResponse{HasGroup: hasGroup, Rides: []dto.DashboardRideEntry{}}
	if !hasGroup {
		return resp, nil
	}

	rides, err := s.rideRepo.ListUpcomingForUser(ctx, userID, s.now(), dashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing upcoming rides: %w", err)
	}
	if len(rides) == 0 {
		return resp, nil
	}

	ids := make([]uuid.UUID, 0, len(rides))
	for _, r := range rides {
		ids = append(ids, r.ID)
	}
	participants, err := s.participantRepo.ListByRides(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("error listing participants: %w", err)
	}

	byRide := make(map[uuid.UUID][]*models.Participant, len(rides))
	for _, p := range participants {
		byRide[p.RideID] = append(byRide[p.RideID], p)
	}

	for _, r := range rides {
		entry := dto.DashboardRideEntry{
			RideSummary: *r,
			Attendees:   []dto.ParticipantResponse{},
			MyStatus:    models.RSVPNone,
		}
		for _, p := range byRide[r.ID] {
			if p.Status == models.RSVPAttending {
				entry.Attendees = append(entry.Attendees, dto.NewParticipantResponse(p))
			}
			if p.UserID == userID {
				entry.MyStatus = p.Status
			}
		}
		resp.Rides = append(resp.Rides, entry)
	}
	return resp, nil
}

func (s *rideServiceImpl) Calendar(ctx context.Context, userID uuid.UUID, year, month int) (*dto.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.NewValidationError("month", "month must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return nil, apperrors.NewValidationError("year", "year is out of range")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	next := first.AddDate(0, 1, 0)

	rides, err := s.rideRepo.ListForUserBetween(ctx, userID, first, next)
	if err != nil {
		return nil, fmt.Errorf("error listing rides for calendar: %w", err)
	}

	return &dto.CalendarResponse{
		Year:  year,
		Month: month,
		Weeks: BuildCalendar(first, rides, s.location),
	}, nil
}

// BuildCalendar lays out the month of first as Monday-first weeks. Blank
// leading and trailing cells are nil.
func BuildCalendar(first time.Time, rides []*models.RideSummary, loc *time.Location) [][]*dto.CalendarDay {
	first = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]models.RideSummary)
	for _, r := range rides {
		local := r.DateTime.In(loc)
		if local.Year() == first.Year() && local.Month() == first.Month() {
			byDay[local.Day()] = append(byDay[local.Day()], *r)
		}
	}

	// Monday=0 ... Sunday=6
	lead := (int(first.Weekday()) + 6) % 7

	var weeks [][]*dto.CalendarDay
	week := make([]*dto.CalendarDay, lead, 7)
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
		week = append(week, &dto.CalendarDay{
			Day:   day,
			Date:  date.Format("2006-01-02"),
			Rides: byDay[day],
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]*dto.CalendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, nil)
		}
		weeks = append(weeks, week)
	}
	return weeks
}

func (s *rideServiceImpl) memberRide(ctx context.Context, rideID, userID uuid.UUID) (*models.RideSummary, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.RequireMember(ctx, ride.GroupID, userID); err != nil {
		return nil, err
	}
	return ride, nil
}

func (s *rideServiceImpl) creatorRide(ctx context.Context, rideID, userID uuid.UUID) (*models.RideSummary, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.CreatedBy != userID {
		return nil, apperrors.ErrRideCreatorOnly
	}
	return ride, nil
}

func (s *rideServiceImpl) deleteBlob(ctx context.Context, url string) {
	if s.blobs == nil {
		return
	}
	key, ok := s.blobs.KeyFromURL(url)
	if !ok {
		s.logger.Warn().Str("url", url).Msg("Track URL is not in the bucket, skipping delete")
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to delete track, object orphaned")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
