package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/app/services"
	"github.com/yigit/motobuddies/internal/middleware"
)

// NotificationController handles the inbox and server-side fan-out requests
type NotificationController struct {
	notificationService services.NotificationService
	logger              zerolog.Logger
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService, logger zerolog.Logger) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
		logger:              logger,
	}
}

// CreateNotification handles a fan-out request
// @Summary Fan out a notification
// @Description groupId targets every member but exceptUserId and wins over rideId, which targets the ride creator unless excepted. Accepts the X-API-Key header, or a user token whose user is exceptUserId and a member of the target group.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param request body dto.CreateNotificationRequest true "Notification"
// @Success 200 {object} dto.CreateNotificationResponse "Rows created"
// @Failure 400 {object} dto.ErrorResponse "type, title, body or exceptUserId missing"
// @Failure 403 {object} dto.ErrorResponse "Token user is not exceptUserId or not a group member"
// @Failure 404 {object} dto.ErrorResponse "Group or ride not found"
// @Router /api/notifications [post]
func (c *NotificationController) CreateNotification(ctx *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	dispatch := services.DispatchRequest{
		ExceptUserID: uuid.MustParse(req.ExceptUserID),
		Draft: models.NotificationDraft{
			Type:  req.Type,
			Title: req.Title,
			Body:  req.Body,
			Link:  req.Link,
		},
	}
	if req.GroupID != "" {
		id := uuid.MustParse(req.GroupID)
		dispatch.GroupID = &id
	}
	if req.RideID != "" {
		id := uuid.MustParse(req.RideID)
		dispatch.RideID = &id
	}
	if !middleware.IsAPIClient(ctx) {
		sender, ok := currentUser(ctx)
		if !ok {
			return
		}
		dispatch.SenderID = &sender
	}

	count, err := c.notificationService.Dispatch(ctx, dispatch)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Debug().
		Bool("apiClient", middleware.IsAPIClient(ctx)).
		Int("count", count).
		Msg("Notification request handled")

	ctx.JSON(http.StatusOK, dto.CreateNotificationResponse{OK: true, Count: count})
}

// ListNotifications handles the inbox
// @Summary List my notifications
// @Description The latest 20 notifications and the unread count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.NotificationListResponse} "Inbox"
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	items, unread, err := c.notificationService.List(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.NotificationListResponse{
		Items:       make([]models.Notification, 0, len(items)),
		UnreadCount: unread,
	}
	for _, n := range items {
		resp.Items = append(resp.Items, *n)
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// MarkRead handles marking one notification read
// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.APIResponse "Marked"
// @Failure 404 {object} dto.ErrorResponse "Notification not found"
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.notificationService.MarkRead(ctx, id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Notification marked as read"))
}

// MarkAllRead handles marking the whole inbox read
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Marked"
// @Router /notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	updated, err := c.notificationService.MarkAllRead(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"updated": updated}, "All notifications marked as read"))
}
