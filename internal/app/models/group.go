package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a riding club joined through its invite code
type Group struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	InviteCode string    `json:"inviteCode" db:"invite_code"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// GroupMembership links a user to a group
type GroupMembership struct {
	GroupID  uuid.UUID  `json:"groupId" db:"group_id"`
	UserID   uuid.UUID  `json:"userId" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joinedAt" db:"joined_at"`

	// Related entities
	Profile *Profile `json:"profile,omitempty" db:"-"`
}

// GroupWithRole is a group as seen by one of its members
type GroupWithRole struct {
	Group
	Role        MemberRole `json:"role" db:"role"`
	MemberCount int        `json:"memberCount" db:"member_count"`
}
