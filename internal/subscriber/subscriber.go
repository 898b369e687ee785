// Package subscriber maintains resilient subscriptions to the kiosk's
// pub/sub channels. The data channel and the theme sync channel each get an
// independent subscriber with its own endpoint, credentials and topic.
package subscriber

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const (
	// Reconnect policy shared by both transports: fixed minimum retry
	// interval, bounded maximum backoff.
	retryMin = 1 * time.Second
	retryMax = 30 * time.Second

	keepAlive      = 20 * time.Second
	connectTimeout = 10 * time.Second
)

// Handler consumes one raw message payload. Handlers must not block: they
// enqueue into a mailbox and return.
type Handler func(payload []byte)

// Config describes one channel subscription.
type Config struct {
	// Endpoint is a broker URL (tcp://host:port, ssl://..., amqp://...)
	// or a bare host, which is treated as an MQTT broker on port 1883.
	Endpoint string
	Username string
	Password string
	Topic    string
	ClientID string
}

// Subscriber is a long-lived background subscription. Start performs the
// initial setup and returns an error only on unrecoverable setup failure;
// after a successful Start, transport disconnects are absorbed by automatic
// reconnection until the context is canceled.
type Subscriber interface {
	Start(ctx context.Context) error
	Close()
}

// New selects the transport from the endpoint scheme: amqp/amqps endpoints
// get a RabbitMQ subscriber, everything else an MQTT one.
func New(cfg Config, handler Handler, logger *slog.Logger) Subscriber {
	scheme := ""
	if idx := strings.Index(cfg.Endpoint, "://"); idx >= 0 {
		scheme = strings.ToLower(cfg.Endpoint[:idx])
	}
	switch scheme {
	case "amqp", "amqps":
		return NewRabbitMQ(cfg, handler, logger)
	default:
		return NewMQTT(cfg, handler, logger)
	}
}

// ExtractThemeName pulls the theme name out of a theme channel payload:
// a JSON object with a string "theme" field. Anything else reports false.
func ExtractThemeName(payload []byte) (string, bool) {
	var msg struct {
		Theme *string `json:"theme"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", false
	}
	if msg.Theme == nil {
		return "", false
	}
	return *msg.Theme, true
}

// ThemeHandler adapts a theme-name consumer into a raw payload Handler,
// silently dropping payloads that are not theme messages.
func ThemeHandler(forward func(name string), logger *slog.Logger) Handler {
	return func(payload []byte) {
		name, ok := ExtractThemeName(payload)
		if !ok {
			logger.Debug("ignoring payload without theme field", "size", len(payload))
			return
		}
		forward(name)
	}
}
