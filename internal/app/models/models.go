package models

// MemberRole is a user's role inside a group
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// RSVPStatus is the stored answer of a user to a ride.
// The absence of a row means no response.
type RSVPStatus string

const (
	RSVPAttending RSVPStatus = "attending"
	RSVPMaybe     RSVPStatus = "maybe"
	RSVPDeclined  RSVPStatus = "declined"
	// RSVPNone is never stored.
	RSVPNone RSVPStatus = ""
)

// Valid reports whether s may be stored.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPAttending, RSVPMaybe, RSVPDeclined:
		return true
	}
	return false
}

// NotificationType enumerates the fan-out events
type NotificationType string

const (
	NotificationNewMember    NotificationType = "new_member"
	NotificationRSVP         NotificationType = "rsvp"
	NotificationRideReminder NotificationType = "ride_reminder"
	NotificationNewRide      NotificationType = "new_ride"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewMember, NotificationRSVP, NotificationRideReminder, NotificationNewRide:
		return true
	}
	return false
}
