package services

// Services bundles the domain services used by the HTTP layer and the CLI
type Services struct {
	Notification NotificationService
	Membership   MembershipService
	RSVP         RSVPService
	Ride         RideService
	Profile      ProfileService
	Geocode      GeocodeService
	Reminder     ReminderService
}
