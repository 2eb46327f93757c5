package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCategory string

const (
	CategoryValidation  ErrorCategory = "VALIDATION"
	CategoryAuth        ErrorCategory = "AUTH"
	CategoryNotFound    ErrorCategory = "NOT_FOUND"
	CategoryConflict    ErrorCategory = "CONFLICT"
	CategoryInternal    ErrorCategory = "INTERNAL"
	CategoryDelivery    ErrorCategory = "DELIVERY"
	CategoryPersistence ErrorCategory = "PERSISTENCE"
)

type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	Unwrap() error
	WithCause(cause error) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	cause    error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string            { return e.code }
func (e *domainError) Category() ErrorCategory { return e.category }
func (e *domainError) HTTPStatus() int         { return e.status }
func (e *domainError) Message() string         { return e.message }
func (e *domainError) Unwrap() error           { return e.cause }

func (e *domainError) WithCause(cause error) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  e.message,
		cause:    cause,
	}
}

// Is lets sentinel domain errors match their WithCause copies through
// errors.Is.
func (e *domainError) Is(target error) bool {
	other, ok := target.(*domainError)
	return ok && other.code == e.code
}

func New(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:     code,
		category: category,
		status:   status,
		message:  message,
	}
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	// Token verification failures. One sentinel per failure mode so the
	// handshake and the REST gateway can report precisely.
	ErrTokenMissing = New(
		"TOKEN_MISSING",
		CategoryAuth,
		http.StatusUnauthorized,
		"authorization token is missing",
	)

	ErrTokenMalformed = New(
		"TOKEN_MALFORMED",
		CategoryAuth,
		http.StatusUnauthorized,
		"authorization token is malformed",
	)

	ErrTokenExpired = New(
		"TOKEN_EXPIRED",
		CategoryAuth,
		http.StatusUnauthorized,
		"authorization token has expired",
	)

	ErrTokenSignature = New(
		"TOKEN_INVALID_SIGNATURE",
		CategoryAuth,
		http.StatusUnauthorized,
		"authorization token signature is invalid",
	)

	ErrForbidden = New(
		"FORBIDDEN",
		CategoryAuth,
		http.StatusForbidden,
		"operation is not permitted",
	)

	ErrInvalidCredentials = New(
		"INVALID_CREDENTIALS",
		CategoryAuth,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	ErrEmptyContent = New(
		"EMPTY_CONTENT",
		CategoryValidation,
		http.StatusBadRequest,
		"content must not be empty",
	)

	ErrNotAMember = New(
		"NOT_A_MEMBER",
		CategoryValidation,
		http.StatusForbidden,
		"user is not a member of the workspace",
	)

	ErrEmptyQuery = New(
		"EMPTY_QUERY",
		CategoryValidation,
		http.StatusBadRequest,
		"query is empty",
	)

	ErrUserNotFound = New(
		"USER_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrWorkspaceNotFound = New(
		"WORKSPACE_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"workspace not found",
	)

	ErrEmailAlreadyExists = New(
		"EMAIL_ALREADY_EXISTS",
		CategoryConflict,
		http.StatusConflict,
		"email already registered",
	)

	ErrStoreUnavailable = New(
		"STORE_UNAVAILABLE",
		CategoryPersistence,
		http.StatusServiceUnavailable,
		"persistent store is unavailable",
	)

	ErrStoreConflict = New(
		"STORE_CONFLICT",
		CategoryPersistence,
		http.StatusConflict,
		"persistent store rejected a conflicting write",
	)

	ErrSessionUnreachable = New(
		"SESSION_UNREACHABLE",
		CategoryDelivery,
		http.StatusGone,
		"session cannot accept deliveries",
	)

	ErrInternal = New(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)
