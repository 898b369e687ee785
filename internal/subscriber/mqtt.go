package subscriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttQoS = 1

// MQTT subscribes to one topic on an MQTT broker. Reconnection is the
// client library's job: auto-reconnect with retryMin connect retries and a
// retryMax ceiling, resubscribing on every (re)connect.
type MQTT struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger
	client  mqtt.Client
}

func NewMQTT(cfg Config, handler Handler, logger *slog.Logger) *MQTT {
	return &MQTT{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("transport", "mqtt", "topic", cfg.Topic),
	}
}

// Start connects and subscribes. Client construction, the initial connect
// and the initial subscribe failing are all unrecoverable: the error is
// returned and this subscription stays down while the process runs degraded.
func (s *MQTT) Start(ctx context.Context) error {
	broker := brokerURI(s.cfg.Endpoint)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(retryMin)
	opts.SetMaxReconnectInterval(retryMax)

	opts.OnConnect = func(c mqtt.Client) {
		// Clean sessions lose subscriptions across reconnects, so
		// resubscribe on every connect.
		token := c.Subscribe(s.cfg.Topic, mqttQoS, s.onMessage)
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			s.logger.Error("resubscribe failed", "error", token.Error())
			return
		}
		s.logger.Info("connected and subscribed", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.logger.Warn("connection lost, waiting for automatic reconnection", "error", err)
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	sub := s.client.Subscribe(s.cfg.Topic, mqttQoS, s.onMessage)
	if !sub.WaitTimeout(connectTimeout) {
		s.client.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %s: timeout", s.cfg.Topic)
	}
	if err := sub.Error(); err != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %s: %w", s.cfg.Topic, err)
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	return nil
}

func (s *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	s.logger.Debug("message received", "size", len(msg.Payload()))
	s.handler(msg.Payload())
}

// Close disconnects with a short grace period for in-flight work.
func (s *MQTT) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// brokerURI normalizes a bare host to the conventional MQTT URI form.
func brokerURI(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return fmt.Sprintf("tcp://%s:1883", endpoint)
}
