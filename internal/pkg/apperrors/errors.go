package apperrors

import "errors"

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindUpstream   Kind = "upstream"
	KindInternal   Kind = "internal"
)

// Root sentinels. Every domain error wraps exactly one of these.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrResourceNotFound = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUpstream         = errors.New("upstream service failed")
	ErrInternal         = errors.New("internal error")
)

// Authentication errors
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Membership errors
var (
	ErrGroupNotFound          = &CustomError{Err: ErrResourceNotFound, Message: "group not found", Code: "GROUP_NOT_FOUND"}
	ErrInviteCodeNotFound     = &CustomError{Err: ErrResourceNotFound, Message: "no group matches this invite code", Code: "GROUP_INVITE_NOT_FOUND"}
	ErrAlreadyMember          = &CustomError{Err: ErrConflict, Message: "user is already a member of this group", Code: "GROUP_ALREADY_MEMBER"}
	ErrNotMember              = &CustomError{Err: ErrPermissionDenied, Message: "user is not a member of this group", Code: "GROUP_NOT_MEMBER"}
	ErrMembershipNotFound     = &CustomError{Err: ErrResourceNotFound, Message: "membership not found", Code: "GROUP_MEMBERSHIP_NOT_FOUND"}
	ErrInviteCodeExhausted    = &CustomError{Err: ErrInternal, Message: "could not allocate a unique invite code", Code: "GROUP_INVITE_EXHAUSTED"}
	ErrInviteCodeCollision    = &CustomError{Err: ErrConflict, Message: "invite code already in use", Code: "GROUP_INVITE_COLLISION"}
	ErrAdminRequired          = &CustomError{Err: ErrPermissionDenied, Message: "only group admins can do this", Code: "GROUP_ADMIN_REQUIRED"}
	ErrGroupNameRequired      = &CustomError{Err: ErrValidationFailed, Message: "group name is required", Code: "GROUP_NAME_REQUIRED"}
	ErrInviteCodeRequired     = &CustomError{Err: ErrValidationFailed, Message: "invite code is required", Code: "GROUP_INVITE_REQUIRED"}
	ErrProfileNotFound        = &CustomError{Err: ErrResourceNotFound, Message: "profile not found", Code: "PROFILE_NOT_FOUND"}
	ErrUsernameRequired       = &CustomError{Err: ErrValidationFailed, Message: "username is required", Code: "PROFILE_USERNAME_REQUIRED"}
	ErrNotificationNotFound   = &CustomError{Err: ErrResourceNotFound, Message: "notification not found", Code: "NOTIFICATION_NOT_FOUND"}
	ErrSenderMismatch         = &CustomError{Err: ErrPermissionDenied, Message: "exceptUserId must be the signed-in user", Code: "NOTIFICATION_SENDER_MISMATCH"}
)

// Ride errors
var (
	ErrRideNotFound      = &CustomError{Err: ErrResourceNotFound, Message: "ride not found", Code: "RIDE_NOT_FOUND"}
	ErrRideCreatorOnly   = &CustomError{Err: ErrPermissionDenied, Message: "only the ride creator can do this", Code: "RIDE_CREATOR_ONLY"}
	ErrInvalidCoordinate = &CustomError{Err: ErrValidationFailed, Message: "coordinates out of range", Code: "RIDE_INVALID_COORDINATES"}
	ErrInvalidRSVP       = &CustomError{Err: ErrValidationFailed, Message: "status must be attending, maybe or declined", Code: "RIDE_INVALID_STATUS"}
	ErrRideTitleRequired = &CustomError{Err: ErrValidationFailed, Message: "title is required", Code: "RIDE_TITLE_REQUIRED"}
	ErrNoGPX             = &CustomError{Err: ErrResourceNotFound, Message: "ride has no GPX track", Code: "RIDE_NO_GPX"}
)

// Track and third-party errors
var (
	ErrMalformedGPX        = &CustomError{Err: ErrValidationFailed, Message: "GPX document could not be parsed", Code: "GPX_MALFORMED"}
	ErrGPXFetchFailed      = &CustomError{Err: ErrUpstream, Message: "GPX file could not be fetched", Code: "GPX_FETCH_FAILED"}
	ErrForecastUnavailable = &CustomError{Err: ErrValidationFailed, Message: "forecast is only available up to 16 days ahead", Code: "WEATHER_OUT_OF_RANGE"}
	ErrWeatherUpstream     = &CustomError{Err: ErrUpstream, Message: "weather service unavailable", Code: "WEATHER_UPSTREAM"}
	ErrGeocodeUpstream     = &CustomError{Err: ErrUpstream, Message: "geocoding service unavailable", Code: "GEOCODE_UPSTREAM"}
	ErrSuperseded          = &CustomError{Err: ErrConflict, Message: "search superseded by a newer query", Code: "GEOCODE_SUPERSEDED"}
	ErrBlobStorage         = &CustomError{Err: ErrUpstream, Message: "blob storage operation failed", Code: "STORAGE_FAILED"}
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation error tied to a request field.
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewUpstreamError wraps a failure of a third-party service.
func NewUpstreamError(service string, cause error) error {
	return &CustomError{
		Err:     ErrUpstream,
		Message: service + " request failed",
		cause:   cause,
	}
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// KindOf reports the taxonomy bucket of err. The outermost CustomError
// decides; unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *CustomError
	if errors.As(err, &ce) && ce.Err != nil {
		return sentinelKind(ce.Err)
	}
	return sentinelKind(err)
}

func sentinelKind(err error) Kind {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrResourceNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}

	cause error
}

// Error implements error interface
func (e *CustomError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *CustomError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// Is matches sentinel CustomErrors by code so that wrapped copies still compare equal.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e == t || (e.Code != "" && e.Code == t.Code)
}

// Wrap returns a copy of e carrying cause.
func (e *CustomError) Wrap(cause error) *CustomError {
	cp := *e
	cp.cause = cause
	return &cp
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	cp := *e
	cp.Code = code
	return &cp
}
