package iot

import (
	"context"
	"errors"
	"fmt"

	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
)

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrPlantNotFound     = errors.New("plant not found")
	ErrLocationNotFound  = errors.New("sensor location not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupExists       = errors.New("group already exists")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidHours      = errors.New("hours must be a non-negative integer")
	ErrInvalidActuator   = errors.New("unknown actuator")
	ErrInvalidThresholds = errors.New("threshold minimum exceeds maximum")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrStoreUnavailable  = errors.New("store unavailable")

	ErrDeviceUnauthorized = errors.New("unknown device or invalid api token")
	ErrDeviceMismatch     = errors.New("payload names another device")

	// ErrConflict is a get-or-create race that one re-read did not settle.
	ErrConflict = db.ErrConflict
)

// storeError folds deadline and lock contention failures into
// ErrStoreUnavailable so transports can ask the device to retry.
func storeError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || db.IsTransient(err) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
