package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/app/services"
	"github.com/yigit/motobuddies/internal/middleware"
)

// GroupController handles group membership operations
type GroupController struct {
	membershipService services.MembershipService
	rideService       services.RideService
	logger            zerolog.Logger
}

// NewGroupController creates a new GroupController
func NewGroupController(membershipService services.MembershipService, rideService services.RideService, logger zerolog.Logger) *GroupController {
	return &GroupController{
		membershipService: membershipService,
		rideService:       rideService,
		logger:            logger,
	}
}

// CreateGroup handles group creation
// @Summary Create a group
// @Description Creates a group with a fresh invite code and makes the caller its admin
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateGroupRequest true "Group name"
// @Success 201 {object} dto.APIResponse{data=dto.GroupResponse} "Group created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Invite code could not be allocated"
// @Router /groups [post]
func (c *GroupController) CreateGroup(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req dto.CreateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	group, err := c.membershipService.CreateGroup(ctx, req.Name, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(group, "Group created"))
}

// JoinGroup handles joining through an invite code
// @Summary Join a group
// @Description Joins the group whose invite code matches, ignoring letter case and surrounding spaces
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.JoinGroupRequest true "Invite code"
// @Success 200 {object} dto.APIResponse{data=dto.GroupResponse} "Joined"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "No group matches the code"
// @Failure 409 {object} dto.ErrorResponse "Already a member (reason GROUP_ALREADY_MEMBER)"
// @Router /groups/join [post]
func (c *GroupController) JoinGroup(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req dto.JoinGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	group, err := c.membershipService.JoinGroup(ctx, req.InviteCode, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(group, "Joined group"))
}

// ListMyGroups handles listing the caller's groups
// @Summary List my groups
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.GroupResponse} "Groups"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /groups [get]
func (c *GroupController) ListMyGroups(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	groups, err := c.membershipService.ListMyGroups(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(groups, ""))
}

// GetGroup handles the group page
// @Summary Get a group
// @Description Returns the group with its members. Only members may see it.
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} dto.APIResponse{data=dto.GroupDetailResponse} "Group"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Failure 404 {object} dto.ErrorResponse "Group not found"
// @Router /groups/{id} [get]
func (c *GroupController) GetGroup(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	groupID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	group, err := c.membershipService.GetGroup(ctx, groupID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(group, ""))
}

// RenameGroup handles renaming by an admin
// @Summary Rename a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param request body dto.RenameGroupRequest true "New name"
// @Success 200 {object} dto.APIResponse{data=dto.GroupResponse} "Renamed"
// @Failure 403 {object} dto.ErrorResponse "Not an admin"
// @Router /groups/{id} [patch]
func (c *GroupController) RenameGroup(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	groupID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.RenameGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	group, err := c.membershipService.RenameGroup(ctx, groupID, userID, req.Name)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(group, "Group renamed"))
}

// LeaveGroup handles leaving a group
// @Summary Leave a group
// @Description Removes the caller's membership. wasLastGroup tells the client to start onboarding.
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} dto.APIResponse{data=dto.LeaveGroupResponse} "Left"
// @Failure 404 {object} dto.ErrorResponse "Not a member"
// @Router /groups/{id}/membership [delete]
func (c *GroupController) LeaveGroup(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	groupID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	result, err := c.membershipService.LeaveGroup(ctx, groupID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Left group"))
}

// ListGroupRides handles the ride list of a group
// @Summary List rides of a group
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} dto.APIResponse{data=[]models.RideSummary} "Rides"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Router /groups/{id}/rides [get]
func (c *GroupController) ListGroupRides(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	groupID, ok := uuidParam(ctx, "id")
	if !ok {
		return
	}

	rides, err := c.rideService.ListGroupRides(ctx, groupID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(rides, ""))
}
