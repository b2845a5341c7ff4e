package mqtt

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	_ "liyu1981.xyz/greenhouse-telemetry/pkg/testing"
)

const testKeyHex = "603deb1015ca71be2b73aef0857d77811f352c073b6108d72d9810a30914dff4"

const scenarioPayload = `{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi-42"},"locations":[{"location_name":"bedA","soil_moisture":55.0}],"temperature":22.5,"air_humidity":60.0}`

type published struct {
	topic string
	body  []byte
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(topic string, _ byte, _ bool, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, body: body})
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// gatedPublisher holds its first reply until the gate opens.
type gatedPublisher struct {
	recordingPublisher
	gate  chan struct{}
	first sync.Once
}

func (p *gatedPublisher) Publish(topic string, qos byte, retained bool, body []byte) error {
	held := false
	p.first.Do(func() { held = true })
	if held {
		<-p.gate
	}
	return p.recordingPublisher.Publish(topic, qos, retained, body)
}

func newTestHandler(t *testing.T) (*Handler, *recordingPublisher) {
	t.Helper()
	common.SetTestLoggerNop()

	key, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)
	cipher, err := channel.New(key)
	require.NoError(t, err)

	dbInstance, err := db.Open(db.UseSqliteDialector(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	publisher := &recordingPublisher{}
	return &Handler{
		Iot:       (&iot.IOT{Db: *dbInstance, Cipher: cipher}).WithDefaultServices(),
		Publisher: publisher,
	}, publisher
}

func envelopeBody(t *testing.T, c *channel.Cipher, plaintext string) []byte {
	t.Helper()
	wire, err := c.Encrypt([]byte(plaintext))
	require.NoError(t, err)
	body, err := json.Marshal(Envelope{Encrypted: wire})
	require.NoError(t, err)
	return body
}

func lastReply(t *testing.T, p *recordingPublisher) (string, Envelope) {
	t.Helper()
	require.NotEmpty(t, p.messages)
	msg := p.messages[len(p.messages)-1]
	var env Envelope
	require.NoError(t, json.Unmarshal(msg.body, &env))
	return msg.topic, env
}

func TestTopicDevice(t *testing.T) {
	cases := map[string]struct {
		device string
		ok     bool
	}{
		"greenhouse/pi-42/readings":     {"pi-42", true},
		"greenhouse//readings":          {"", false},
		"greenhouse/pi-42/ack":          {"", false},
		"other/pi-42/readings":          {"", false},
		"greenhouse/pi-42/readings/ext": {"", false},
	}
	for topic, want := range cases {
		device, ok := TopicDevice(topic)
		assert.Equal(t, want.ok, ok, topic)
		assert.Equal(t, want.device, device, topic)
	}
	assert.Equal(t, "greenhouse/pi-42/ack", AckTopic("pi-42"))
}

func TestHandleMessageAcks(t *testing.T) {
	h, publisher := newTestHandler(t)

	h.HandleMessage(context.Background(), "greenhouse/pi-42/readings", envelopeBody(t, h.Iot.Cipher, scenarioPayload))

	topic, reply := lastReply(t, publisher)
	assert.Equal(t, "greenhouse/pi-42/ack", topic)
	require.Empty(t, reply.Error)

	plaintext, err := h.Iot.Cipher.Decrypt(reply.Encrypted)
	require.NoError(t, err)
	var ack iot.Ack
	require.NoError(t, json.Unmarshal(plaintext, &ack))
	assert.Equal(t, "pi-42", ack.Device.DeviceID)

	var readings int64
	require.NoError(t, h.Iot.Db.Conn.Model(&models.SensorReading{}).Count(&readings).Error)
	assert.EqualValues(t, 1, readings)
}

func TestHandleMessageRejections(t *testing.T) {
	h, publisher := newTestHandler(t)

	other, err := channel.New(make([]byte, channel.KeySize))
	require.NoError(t, err)

	cases := []struct {
		name string
		body []byte
		want string
	}{
		{"not json", []byte("nope"), "missing encrypted field"},
		{"empty envelope", []byte(`{}`), "missing encrypted field"},
		{"wrong key", envelopeBody(t, other, scenarioPayload), "could not decrypt payload"},
		{"invalid payload", envelopeBody(t, h.Iot.Cipher, `{"raspberry":{"device_name":"pi-42"}}`), "invalid payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.HandleMessage(context.Background(), "greenhouse/pi-42/readings", tc.body)
			_, reply := lastReply(t, publisher)
			assert.Empty(t, reply.Encrypted)
			assert.Contains(t, reply.Error, tc.want)
		})
	}

	var devices int64
	require.NoError(t, h.Iot.Db.Conn.Model(&models.Device{}).Count(&devices).Error)
	assert.EqualValues(t, 0, devices)
}

func TestHandleMessageIgnoresUnexpectedTopic(t *testing.T) {
	h, publisher := newTestHandler(t)

	h.HandleMessage(context.Background(), "greenhouse/pi-42/ack", envelopeBody(t, h.Iot.Cipher, scenarioPayload))

	assert.Empty(t, publisher.messages)
}

func TestHandleMessageRateLimited(t *testing.T) {
	h, publisher := newTestHandler(t)
	h.Iot.RateLimiterStore = iot.NewRateLimiterStore(0, 1)

	h.HandleMessage(context.Background(), "greenhouse/pi-42/readings", envelopeBody(t, h.Iot.Cipher, scenarioPayload))
	h.HandleMessage(context.Background(), "greenhouse/pi-42/readings", envelopeBody(t, h.Iot.Cipher, scenarioPayload))

	_, reply := lastReply(t, publisher)
	assert.Equal(t, "rate limit exceeded", reply.Error)
}

func TestDispatchDoesNotBlockOnSlowReply(t *testing.T) {
	h, _ := newTestHandler(t)
	publisher := &gatedPublisher{gate: make(chan struct{})}
	h.Publisher = publisher

	h.Dispatch(context.Background(), "greenhouse/pi-1/readings",
		envelopeBody(t, h.Iot.Cipher, strings.Replace(scenarioPayload, "pi-42", "pi-1", 1)))
	h.Dispatch(context.Background(), "greenhouse/pi-2/readings",
		envelopeBody(t, h.Iot.Cipher, strings.Replace(scenarioPayload, "pi-42", "pi-2", 1)))

	// one reply is held at the gate while the other goes out
	require.Eventually(t, func() bool { return publisher.count() == 1 }, 5*time.Second, 10*time.Millisecond)

	close(publisher.gate)
	h.Wait()
	assert.Equal(t, 2, publisher.count())

	var devices int64
	require.NoError(t, h.Iot.Db.Conn.Model(&models.Device{}).Count(&devices).Error)
	assert.EqualValues(t, 2, devices)
}
