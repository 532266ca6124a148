package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/app/services"
	"github.com/yigit/motobuddies/internal/middleware"
)

// ProfileController handles the caller's profile
type ProfileController struct {
	profileService services.ProfileService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService services.ProfileService) *ProfileController {
	return &ProfileController{profileService: profileService}
}

// GetProfile handles reading the caller's profile
// @Summary Get my profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile"
// @Failure 404 {object} dto.ErrorResponse "Profile not found"
// @Router /profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	profile, err := c.profileService.Get(ctx, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile, ""))
}

// UpdateProfile handles editing the caller's profile
// @Summary Update my profile
// @Description Brand and model are stored together as one bike string
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /profile [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(ctx, err)
		return
	}

	profile, err := c.profileService.Update(ctx, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile, "Profile updated"))
}

// ListBrands handles the brand picker
// @Summary List motorcycle brands
// @Tags profile
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]services.Brand} "Brands"
// @Router /brands [get]
func (c *ProfileController) ListBrands(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(services.Brands, ""))
}
