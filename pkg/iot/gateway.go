package iot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

// HandleEnvelope runs one encrypted envelope through the whole pipeline and
// returns the encrypted ack. Transports only map its errors:
// channel.ErrTransport and channel.ErrAuthentication for undecryptable input,
// *payload.ValidationError, ErrRateLimited, ErrConflict and
// ErrStoreUnavailable for retryable store failures, anything else is internal.
func (i *IOT) HandleEnvelope(ctx context.Context, encrypted string) (string, error) {
	return i.handleEnvelope(ctx, encrypted, nil)
}

// HandleDeviceEnvelope is HandleEnvelope for a device that already proved its
// api token. A payload naming any other device fails with ErrDeviceMismatch
// before anything is stored.
func (i *IOT) HandleDeviceEnvelope(ctx context.Context, device *models.Device, encrypted string) (string, error) {
	return i.handleEnvelope(ctx, encrypted, device)
}

func (i *IOT) handleEnvelope(ctx context.Context, encrypted string, authenticated *models.Device) (string, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryIngest)

	plaintext, err := i.Cipher.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, channel.ErrAuthentication) {
			logger.Warn("Rejected envelope failing authentication")
		} else {
			logger.Info("Rejected malformed envelope", zap.Error(err))
		}
		return "", err
	}

	reading, err := payload.Validate(plaintext)
	if err != nil {
		logger.Info("Rejected invalid payload", zap.Error(err))
		return "", err
	}

	if authenticated != nil && authenticated.DeviceID != reading.DeviceName {
		logger.Warn("Rejected payload for another device",
			zap.String("device_id", authenticated.DeviceID),
			zap.String("payload_device_id", reading.DeviceName))
		return "", ErrDeviceMismatch
	}

	if !i.RateLimiterStore.Allow(reading.DeviceName) {
		logger.Warn("Device rate limited", zap.String("device_id", reading.DeviceName))
		return "", ErrRateLimited
	}

	device, readings, err := i.Ingest.Ingest(ctx, reading, plaintext)
	if err != nil {
		return "", err
	}

	if i.Alert != nil {
		if err := i.Alert.CheckAndStoreAlerts(ctx, readings); err != nil {
			logger.Error("Alert evaluation failed", zap.String("device_id", device.DeviceID), zap.Error(err))
		}
	}

	return i.EncodeAck(device)
}
