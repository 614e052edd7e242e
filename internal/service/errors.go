package service

type ErrorCode string

const (
	ErrorCodeTeamFull        ErrorCode = "TEAM_FULL"
	ErrorCodeAlreadyAssigned ErrorCode = "ALREADY_ASSIGNED"
	ErrorCodeValidation      ErrorCode = "VALIDATION"
	ErrorCodeNotAuth         ErrorCode = "NOT_AUTHENTICATED"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeStorage         ErrorCode = "STORAGE"
	ErrorCodeSubscription    ErrorCode = "SUBSCRIPTION"
	ErrorCodeInvalidBody     ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified     ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// Retryable reports whether the caller may usefully re-submit the same
// request. No retry happens automatically anywhere — every retry is a
// fresh user action.
func (e *Error) Retryable() bool {
	return e.Code == ErrorCodeStorage || e.Code == ErrorCodeSubscription
}
