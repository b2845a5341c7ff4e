package iot

import (
	"encoding/json"
	"fmt"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

type AckDevice struct {
	ID        uint   `json:"id"`
	DeviceID  string `json:"device_id"`
	GroupName string `json:"group_name"`
	Active    bool   `json:"active"`
	PumpState bool   `json:"pump_state"`
	FanState  bool   `json:"fan_state"`
}

// Ack is the plaintext of the encrypted acknowledgement a device receives.
type Ack struct {
	Message string    `json:"message"`
	Device  AckDevice `json:"device"`
}

func NewAck(device *models.Device) Ack {
	groupName := common.DefaultGroupName
	if device.Group != nil {
		groupName = device.Group.Name
	}
	return Ack{
		Message: "ok",
		Device: AckDevice{
			ID:        device.ID,
			DeviceID:  device.DeviceID,
			GroupName: groupName,
			Active:    device.Active,
			PumpState: device.PumpState,
			FanState:  device.FanState,
		},
	}
}

// EncodeAck serializes the ack for device and encrypts it for the wire.
func (i *IOT) EncodeAck(device *models.Device) (string, error) {
	plaintext, err := json.Marshal(NewAck(device))
	if err != nil {
		return "", fmt.Errorf("encode ack: %w", err)
	}
	return i.Cipher.Encrypt(plaintext)
}
