package types

import "errors"

var (
	ErrNotRegistered       = errors.New("user is not registered")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrInvalidInputFormat  = errors.New("invalid input format")
	ErrPastOrInvalidDate   = errors.New("date must be in the future")
	ErrInvalidRange        = errors.New("end must be after start")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrPublishFailure      = errors.New("publish failed")
	ErrNotificationFailure = errors.New("notification failed")
)
