package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories care about.
const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
	CheckViolation      = "23514"
)

// Constraint names declared by the migrations.
const (
	ConstraintGroupsInviteCode = "groups_invite_code_key"
	ConstraintGroupMembersPK   = "group_members_pkey"
	ConstraintParticipantsPK   = "participants_pkey"

	ConstraintGroupMembersGroupFK = "group_members_group_id_fkey"
	ConstraintGroupMembersUserFK  = "group_members_user_id_fkey"
	ConstraintRidesGroupFK        = "rides_group_id_fkey"
	ConstraintRidesCreatorFK      = "rides_created_by_fkey"
)

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation && pgErr.ConstraintName == constraintName
}

// IsUniqueViolation reports any unique violation regardless of constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolation
}

// IsForeignKeyViolation reports a dangling reference, e.g. a ride in a missing group.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ForeignKeyViolation
}

// IsForeignKeyConstraintError narrows IsForeignKeyViolation to one constraint.
func IsForeignKeyConstraintError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ForeignKeyViolation && pgErr.ConstraintName == constraintName
}

// IsCheckViolation reports a failed CHECK constraint.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == CheckViolation
}

// IsNoRows hides the pgx sentinel from callers.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
