package dto

import "github.com/yigit/motobuddies/internal/app/models"

// CreateNotificationRequest is the body of POST /api/notifications.
// GroupID targets the group's members and wins over RideID, which targets
// the ride creator. With neither the audience is empty.
type CreateNotificationRequest struct {
	GroupID      string                  `json:"groupId" binding:"omitempty,uuid"`
	RideID       string                  `json:"rideId" binding:"omitempty,uuid"`
	ExceptUserID string                  `json:"exceptUserId" binding:"required,uuid"`
	Type         models.NotificationType `json:"type" binding:"required,oneof=new_member rsvp ride_reminder new_ride"`
	Title        string                  `json:"title" binding:"required"`
	Body         string                  `json:"body" binding:"required"`
	Link         *string                 `json:"link"`
}

// CreateNotificationResponse mirrors the fan-out result
type CreateNotificationResponse struct {
	OK    bool `json:"ok" example:"true"`
	Count int  `json:"count" example:"3"`
}

// NotificationListResponse is the inbox view
type NotificationListResponse struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int                   `json:"unreadCount"`
}
