package repositories

import (
	"github.com/Masterminds/squirrel"
	"github.com/yigit/motobuddies/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	GroupRepository        *GroupRepository
	MembershipRepository   *MembershipRepository
	RideRepository         *RideRepository
	ParticipantRepository  *ParticipantRepository
	NotificationRepository *NotificationRepository
	ProfileRepository      *ProfileRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		GroupRepository:        NewGroupRepository(database),
		MembershipRepository:   NewMembershipRepository(database),
		RideRepository:         NewRideRepository(database),
		ParticipantRepository:  NewParticipantRepository(database),
		NotificationRepository: NewNotificationRepository(database),
		ProfileRepository:      NewProfileRepository(database),
	}
}

// statementBuilder renders $n placeholders for PostgreSQL
func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
