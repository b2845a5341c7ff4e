package http

import (
	"context"
	"encoding/json"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

const socketWriteTimeout = 10 * time.Second

// devices send no Origin header, which the default origin check accepts
var deviceUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// DeviceMessage is one frame on the device socket. Each frame carries the
// device's credentials along with its encrypted readings.
type DeviceMessage struct {
	DeviceID  string `json:"device_id" zog:"device_id"`
	APIToken  string `json:"api_token" zog:"api_token"`
	Encrypted string `json:"encrypted" zog:"encrypted"`
}

var deviceMessageSchema = z.Struct(z.Shape{
	"deviceID":  z.String().Min(1).Required(),
	"APIToken":  z.String().Min(1).Required(),
	"encrypted": z.String().Min(1).Required(),
})

type DeviceReply struct {
	Encrypted string               `json:"encrypted,omitempty"`
	Error     string               `json:"error,omitempty"`
	Fields    []payload.FieldError `json:"fields,omitempty"`
}

// DeviceSocket keeps a websocket open for a device and answers every frame
// with an encrypted ack or an error.
func (rs *RestfulServer) DeviceSocket(c *gin.Context) {
	logger := common.GetLoggerWith(common.LoggerNameRestfulServer, zap.String("remote", c.ClientIP()))

	conn, err := deviceUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered
		_ = c.Error(err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(common.MaxEnvelopeBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("Device socket closed", zap.Error(err))
			}
			return
		}

		reply := rs.handleDeviceMessage(c.Request.Context(), data)

		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("Failed to write device reply", zap.Error(err))
			return
		}
	}
}

func (rs *RestfulServer) handleDeviceMessage(ctx context.Context, data []byte) DeviceReply {
	var msg DeviceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return DeviceReply{Error: "invalid message"}
	}
	if issues := deviceMessageSchema.Validate(&msg); issues != nil {
		return DeviceReply{Error: "invalid message", Fields: issueFields(issues)}
	}

	device, err := rs.Iot.AuthenticateDevice(ctx, msg.DeviceID, msg.APIToken)
	if err != nil {
		return failureReply(err)
	}

	ack, err := rs.Iot.HandleDeviceEnvelope(ctx, device, msg.Encrypted)
	if err != nil {
		return failureReply(err)
	}
	return DeviceReply{Encrypted: ack}
}

func failureReply(err error) DeviceReply {
	failure := classifyIngestError(err)
	return DeviceReply{Error: failure.Message, Fields: failure.Fields}
}
