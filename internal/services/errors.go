package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrNotConfigured      = errors.New("discord login is not configured")
	ErrPermissionDenied   = errors.New("missing required discord role")

	// ErrPersistenceUnavailable is returned for writes by a temporary identity
	ErrPersistenceUnavailable = errors.New("progress cannot be saved for a temporary session")

	ErrNotFound         = errors.New("not found")
	ErrCourseNotFound   = fmt.Errorf("course %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrValidationFailed = errors.New("validation failed")
)

// OAuth failure codes, sent back to the browser as the error query parameter
const (
	CodeNoCode              = "no_code"
	CodeTokenExchangeFailed = "token_exchange_failed"
	CodeFetchUserFailed     = "fetch_user_failed"
	CodeFetchMemberFailed   = "fetch_member_failed"
	CodeNoPermission        = "no_permission"
	CodeNotConfigured       = "not_configured"
	CodeDiscordError        = "discord_error"
)

// ProviderError is a failed step of the Discord login flow
type ProviderError struct {
	Code   string
	Detail string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("discord login failed (%s): %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("discord login failed (%s)", e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// OAuthErrorCode maps a callback failure to its redirect code and optional details
func OAuthErrorCode(err error) (code, details string) {
	var providerErr *ProviderError
	switch {
	case errors.As(err, &providerErr):
		return providerErr.Code, providerErr.Detail
	case errors.Is(err, ErrPermissionDenied):
		return CodeNoPermission, ""
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured, ""
	default:
		return CodeDiscordError, err.Error()
	}
}
