package sandbox_service

import (
	"errors"
	"fmt"

	model "sandbox-app-service/models"
)

var (
	// ErrInvalidState operation not allowed in the app's lifecycle status
	ErrInvalidState = errors.New("invalid state")

	// ErrProvisioning provisioning or tunnel establishment failed
	ErrProvisioning = errors.New("provisioning failed")

	// ErrGeneration artifact or explanation generation failed
	ErrGeneration = errors.New("generation failed")

	// ErrDelivery push to the control endpoint failed
	ErrDelivery = errors.New("delivery failed")

	// ErrAppNotFound app is absent from the directory or cannot be reconstructed
	ErrAppNotFound = errors.New("app not found")
)

// InvalidStateError op was attempted while the app was in Status
type InvalidStateError struct {
	AppID  string
	Status model.AppStatus
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: app %s is %s", e.Op, e.AppID, e.Status)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// DeliveryError artifact push failed; StatusCode is 0 when no reply arrived
type DeliveryError struct {
	AppID      string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver artifact to %s: HTTP %d: %v", e.AppID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("deliver artifact to %s: %v", e.AppID, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}
