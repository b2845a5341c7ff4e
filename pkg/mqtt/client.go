package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/config"
)

type Client struct {
	client  paho.Client
	config  config.MQTTConfig
	handler *Handler
}

func NewClient(cfg config.MQTTConfig, handler *Handler) *Client {
	logger := common.GetLoggerWith(common.LoggerNameMqttIngest)

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "wss://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	c := &Client{config: cfg, handler: handler}

	// subscriptions are not kept across a clean-session reconnect
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.Broker))
		if err := c.subscribe(); err != nil {
			logger.Error("Failed to subscribe", zap.Error(err))
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		logger.Info("Reconnecting to MQTT broker")
	})

	c.client = paho.NewClient(opts)
	handler.Publisher = c
	return c
}

func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

func (c *Client) subscribe() error {
	token := c.client.Subscribe(ReadingsTopic, defaultQoS, func(_ paho.Client, msg paho.Message) {
		c.handler.Dispatch(context.Background(), msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", ReadingsTopic, err)
	}
	common.GetLoggerWith(common.LoggerNameMqttIngest).Info("Subscribed", zap.String("topic", ReadingsTopic))
	return nil
}

func (c *Client) Publish(topic string, qos byte, retained bool, body []byte) error {
	token := c.client.Publish(topic, qos, retained, body)
	token.Wait()
	return token.Error()
}

// Disconnect stops new deliveries, lets in-flight messages publish their
// replies, then closes the connection.
func (c *Client) Disconnect() {
	logger := common.GetLoggerWith(common.LoggerNameMqttIngest)
	if token := c.client.Unsubscribe(ReadingsTopic); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		logger.Warn("Failed to unsubscribe before disconnect", zap.Error(token.Error()))
	}
	c.handler.Wait()
	c.client.Disconnect(250)
	logger.Info("Disconnected from MQTT broker")
}
