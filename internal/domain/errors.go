package domain

import "errors"

var (
	ErrCameraDisconnected   = errors.New("camera disconnected")
	ErrStateNotFound        = errors.New("state not found")
	ErrStateLoadingDisabled = errors.New("state loading disabled")
	ErrStateShapeChanged    = errors.New("saved state shape changed")
	ErrUnknownRule          = errors.New("unknown training rule")
	ErrFeedingFailed        = errors.New("feeding failed")
	ErrSecretNotFound       = errors.New("secret not found")
)
