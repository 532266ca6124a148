package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yigit/motobuddies/internal/app/models"
)

// --- Request DTOs ---

// CreateGroupRequest represents group creation data
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,max=80" example:"Lupi della Strada"`
}

// JoinGroupRequest carries an invite code in any letter case
type JoinGroupRequest struct {
	InviteCode string `json:"inviteCode" binding:"required,max=16" example:"k7p2qx"`
}

// RenameGroupRequest represents a group rename by an admin
type RenameGroupRequest struct {
	Name string `json:"name" binding:"required,max=80"`
}

// --- Response DTOs ---

// GroupResponse represents basic group information
type GroupResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	InviteCode  string            `json:"inviteCode" example:"K7P2QX"`
	Role        models.MemberRole `json:"role,omitempty" example:"admin"`
	MemberCount int               `json:"memberCount,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// MemberResponse is one row of the member list
type MemberResponse struct {
	UserID    uuid.UUID         `json:"userId"`
	Username  string            `json:"username"`
	AvatarURL *string           `json:"avatarUrl,omitempty"`
	BikeModel *string           `json:"bikeModel,omitempty"`
	Role      models.MemberRole `json:"role"`
	JoinedAt  time.Time         `json:"joinedAt"`
}

// GroupDetailResponse extends GroupResponse with members and the caller's standing
type GroupDetailResponse struct {
	GroupResponse
	Members     []MemberResponse  `json:"members"`
	MyRole      models.MemberRole `json:"myRole"`
	IsLastGroup bool              `json:"isLastGroup"`
}

// LeaveGroupResponse tells the client whether onboarding should follow
type LeaveGroupResponse struct {
	WasLastGroup bool `json:"wasLastGroup"`
}

// NewGroupResponse maps a group model.
func NewGroupResponse(g *models.Group) GroupResponse {
	return GroupResponse{
		ID:         g.ID,
		Name:       g.Name,
		InviteCode: g.InviteCode,
		CreatedAt:  g.CreatedAt,
	}
}

// NewGroupWithRoleResponse maps a group listed for one member.
func NewGroupWithRoleResponse(g *models.GroupWithRole) GroupResponse {
	resp := NewGroupResponse(&g.Group)
	resp.Role = g.Role
	resp.MemberCount = g.MemberCount
	return resp
}

// NewMemberResponse maps a membership with its profile.
func NewMemberResponse(m *models.GroupMembership) MemberResponse {
	resp := MemberResponse{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt}
	if m.Profile != nil {
		resp.Username = m.Profile.Username
		resp.AvatarURL = m.Profile.AvatarURL
		resp.BikeModel = m.Profile.BikeModel
	}
	return resp
}
