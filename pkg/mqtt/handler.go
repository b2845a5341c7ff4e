package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

const (
	TopicPrefix    = "greenhouse"
	ReadingsTopic  = TopicPrefix + "/+/readings"
	readingsSuffix = "readings"
	ackSuffix      = "ack"
)

const defaultQoS byte = 1

// Publisher is the part of the broker client the handler replies through.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, body []byte) error
}

type Envelope struct {
	Encrypted string `json:"encrypted,omitempty" zog:"encrypted"`
	Error     string `json:"error,omitempty"`
}

var envelopeSchema = z.Struct(z.Shape{
	"encrypted": z.String().Min(1).Required(),
})

// Handler feeds envelopes arriving on greenhouse/<device>/readings into the
// ingest pipeline and answers on greenhouse/<device>/ack.
type Handler struct {
	Iot       *iot.IOT
	Publisher Publisher

	inflight sync.WaitGroup
}

// TopicDevice returns the device segment of a readings topic. The segment only
// routes the reply; the device identity comes from the decrypted payload.
func TopicDevice(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] != readingsSuffix || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func AckTopic(device string) string {
	return TopicPrefix + "/" + device + "/" + ackSuffix
}

// Dispatch handles a message on its own goroutine and returns at once. paho
// runs subscription callbacks on its receive path, which must not block.
func (h *Handler) Dispatch(ctx context.Context, topic string, body []byte) {
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.HandleMessage(ctx, topic, body)
	}()
}

// Wait blocks until every dispatched message has been handled.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) HandleMessage(ctx context.Context, topic string, body []byte) {
	logger := common.GetLoggerWith(common.LoggerNameMqttIngest, zap.String("topic", topic))

	device, ok := TopicDevice(topic)
	if !ok {
		logger.Warn("Ignored message on unexpected topic")
		return
	}

	reply := h.process(ctx, body)
	if reply.Error != "" {
		logger.Warn("Rejected envelope", zap.String("error", reply.Error))
	}

	out, err := json.Marshal(reply)
	if err != nil {
		logger.Error("Failed to encode reply", zap.Error(err))
		return
	}
	if err := h.Publisher.Publish(AckTopic(device), defaultQoS, false, out); err != nil {
		logger.Error("Failed to publish reply", zap.Error(err))
	}
}

func (h *Handler) process(ctx context.Context, body []byte) Envelope {
	var in Envelope
	if err := json.Unmarshal(body, &in); err != nil {
		return Envelope{Error: "missing encrypted field"}
	}
	if issues := envelopeSchema.Validate(&in); issues != nil {
		return Envelope{Error: "missing encrypted field"}
	}

	ack, err := h.Iot.HandleEnvelope(ctx, in.Encrypted)
	if err != nil {
		return Envelope{Error: replyError(err)}
	}
	return Envelope{Encrypted: ack}
}

func replyError(err error) string {
	var verr *payload.ValidationError
	switch {
	case errors.Is(err, channel.ErrTransport), errors.Is(err, channel.ErrAuthentication):
		return "could not decrypt payload"
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, iot.ErrRateLimited):
		return "rate limit exceeded"
	case errors.Is(err, iot.ErrConflict), errors.Is(err, iot.ErrStoreUnavailable):
		return "temporarily unavailable, retry later"
	default:
		return "internal server error"
	}
}
