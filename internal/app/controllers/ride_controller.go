package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/app/services"
	"github.com/yigit/motobuddies/internal/middleware"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// RideController handles rides, RSVPs and the ride page widgets
type RideController struct {
	rideService    services.RideService
	rsvpService    services.RSVPService
	geocodeService services.GeocodeService
	location       *time.Location
	logger         zerolog.Logger
}

// NewRideController creates a new RideController. location reads
// date-times sent without an offset.
func NewRideController(
	rideService services.RideService,
	rsvpService services.RSVPService,
	geocodeService services.GeocodeService,
	location *time.Location,
	logger zerolog.Logger,
) *RideController {
	if location == nil {
		location = time.UTC
	}
	return &RideController{
		rideService:    rideService,
		rsvpService:    rsvpService,
		geocodeService: geocodeService,
		location:       location,
		logger:         logger,
	}
}

// CreateRide handles ride creation with an optional GPX track
// @Summary Create a ride
// @Description Creates a ride in one of the caller's groups. The GPX track is an optional multipart file named "gpx".
// @Tags rides
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId formData string true "Group ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param dateTime formData string true "Start, RFC 3339"
// @Param startLat formData number true "Start latitude"
// @Param startLon formData number true "Start longitude"
// @Param meetingPointName formData string false "Meeting point"
// @Param gpx formData file false "GPX track"
// @Success 201 {object} dto.APIResponse{data=models.Ride} "Ride created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or GPX"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the group"
// @Failure 502 {object} dto.ErrorResponse "Track could not be stored"
// @Router /rides [post]
func (c *RideController) CreateRide(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req dto.CreateRideRequest
	if err := ctx.ShouldBind(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	startsAt, err := services.ParseRideTime(req.DateTime, c.location)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	input := services.CreateRideInput{
		GroupID:          uuid.MustParse(req.GroupID),
		Title:            req.Title,
		Description:      req.Description,
		DateTime:         startsAt,
		StartLat:         *req.StartLat,
		StartLon:         *req.StartLon,
		MeetingPointName: req.MeetingPointName,
	}

	var upload *services.GPXUpload
	if fileHeader, err := ctx.FormFile("gpx"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to open uploaded track")
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("gpx", "GPX file could not be read"))
			return
		}
		defer file.Close()
		upload = &services.GPXUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	ride, err := c.rideService.Create(ctx, userID, input, upload)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(ride, "Ride created"))
}

// GetRide handles the ride page
// @Summary Get a ride
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} dto.APIResponse{data=dto.RideDetailResponse} "Ride"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the ride's group"
// @Failure 404 {object} dto.ErrorResponse "Ride not found"
// @Router /rides/{id} [get]
func (c *RideController) GetRide(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.rideService.Detail(ctx, rideID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(detail, ""))
}

// DeleteRide handles ride deletion by its creator
// @Summary Delete a ride
// @Description Deletes the ride, its RSVPs and its GPX track
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} dto.APIResponse "Ride deleted"
// @Failure 403 {object} dto.ErrorResponse "Not the creator"
// @Failure 404 {object} dto.ErrorResponse "Ride not found"
// @Router /rides/{id} [delete]
func (c *RideController) DeleteRide(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.rideService.Delete(ctx, rideID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Ride deleted"))
}

// RemoveGPX handles detaching the track of a ride
// @Summary Remove the GPX track of a ride
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} dto.APIResponse "Track removed"
// @Failure 403 {object} dto.ErrorResponse "Not the creator"
// @Failure 404 {object} dto.ErrorResponse "Ride or track not found"
// @Router /rides/{id}/gpx [delete]
func (c *RideController) RemoveGPX(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.rideService.RemoveGPX(ctx, rideID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Track removed"))
}

// GetGPXSummary handles the track summary of a ride
// @Summary Summarize the GPX track of a ride
// @Description Distance, elevation gain and loss, polyline and bounds of the first track
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} dto.APIResponse{data=dto.GPXSummaryResponse} "Summary"
// @Failure 400 {object} dto.ErrorResponse "Track is not valid GPX"
// @Failure 404 {object} dto.ErrorResponse "Ride has no track"
// @Failure 502 {object} dto.ErrorResponse "Track could not be fetched"
// @Router /rides/{id}/gpx/summary [get]
func (c *RideController) GetGPXSummary(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.rideService.GPXSummary(ctx, rideID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary, ""))
}

// GetWeather handles the forecast widget
// @Summary Forecast at the ride start
// @Description Available is false with a reason when the ride is more than 16 days ahead or the provider fails
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Success 200 {object} dto.APIResponse{data=dto.WeatherResponse} "Forecast"
// @Failure 404 {object} dto.ErrorResponse "Ride not found"
// @Router /rides/{id}/weather [get]
func (c *RideController) GetWeather(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	forecast, err := c.rideService.Weather(ctx, rideID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(forecast, ""))
}

// ToggleRSVP handles the RSVP buttons
// @Summary Answer a ride
// @Description Stores the status, or clears it when the same status is selected again
// @Tags rides
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ride ID"
// @Param request body dto.RSVPRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=dto.RSVPResponse} "State after the toggle"
// @Failure 403 {object} dto.ErrorResponse "Not a member of the ride's group"
// @Failure 404 {object} dto.ErrorResponse "Ride not found"
// @Router /rides/{id}/rsvp [put]
func (c *RideController) ToggleRSVP(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rideID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.RSVPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	resp, err := c.rsvpService.Toggle(ctx, rideID, userID, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// GetDashboard handles the home page
// @Summary Upcoming rides across my groups
// @Description hasGroup false means the client should show onboarding
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardResponse} "Dashboard"
// @Router /dashboard [get]
func (c *RideController) GetDashboard(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	dashboard, err := c.rideService.Dashboard(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dashboard, ""))
}

// GetCalendar handles the month view
// @Summary Month calendar of my rides
// @Description Monday-first weeks; blank cells are null. Defaults to the current month.
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year"
// @Param month query int false "Month 1-12"
// @Success 200 {object} dto.APIResponse{data=dto.CalendarResponse} "Calendar"
// @Failure 400 {object} dto.ErrorResponse "Invalid year or month"
// @Router /calendar [get]
func (c *RideController) GetCalendar(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	now := time.Now().In(c.location)
	year, err := intQuery(ctx, "year", now.Year())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	month, err := intQuery(ctx, "month", int(now.Month()))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	calendar, err := c.rideService.Calendar(ctx, userID, year, month)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(calendar, ""))
}

// SearchPlaces handles meeting point autocomplete
// @Summary Search places
// @Description Queries shorter than 3 characters return no results. A newer query from the same user supersedes a pending one with 409.
// @Tags rides
// @Produce json
// @Security BearerAuth
// @Param q query string true "Free text"
// @Success 200 {object} dto.APIResponse{data=[]dto.GeocodeResult} "Places"
// @Failure 409 {object} dto.ErrorResponse "Superseded by a newer query"
// @Failure 502 {object} dto.ErrorResponse "Geocoding service unavailable"
// @Router /geocode [get]
func (c *RideController) SearchPlaces(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	results, err := c.geocodeService.Search(ctx, userID, ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(results, ""))
}

func intQuery(ctx *gin.Context, name string, fallback int) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, name+" must be a number")
	}
	return v, nil
}
