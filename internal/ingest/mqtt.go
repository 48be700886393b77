package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTOptions configures the broker connection
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// DefaultConnectTimeout bounds the initial broker connection
const DefaultConnectTimeout = 10 * time.Second

// ErrConnectTimeout means the broker did not answer the initial connect in
// time. With connect retry on, the pending token holds no error.
var ErrConnectTimeout = errors.New("connect timed out")

// MQTTSubscriber listens on "<topic>/+/status"
type MQTTSubscriber struct {
	client         mqtt.Client
	opts           MQTTOptions
	handler        *Handler
	connectTimeout time.Duration
}

// NewMQTTSubscriber builds the client without connecting
func NewMQTTSubscriber(opts MQTTOptions, handler *Handler) *MQTTSubscriber {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)

	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetCleanSession(true)
	co.SetConnectTimeout(10 * time.Second)
	co.SetKeepAlive(30 * time.Second)

	co.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", opts.Broker).Msg("MQTT client connected")
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Error().Err(err).Str("broker", opts.Broker).Msg("MQTT connection lost")
	})

	return &MQTTSubscriber{
		client:         mqtt.NewClient(co),
		opts:           opts,
		handler:        handler,
		connectTimeout: DefaultConnectTimeout,
	}
}

// Filter is the subscription topic filter
func (s *MQTTSubscriber) Filter() string {
	return strings.TrimSuffix(s.opts.Topic, "/") + "/+/status"
}

// Start connects, subscribes and blocks until ctx is done
func (s *MQTTSubscriber) Start(ctx context.Context) error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.connectTimeout) {
		s.client.Disconnect(0)
		return fmt.Errorf("connect to MQTT broker %s after %s: %w", s.opts.Broker, s.connectTimeout, ErrConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to MQTT broker %s: %w", s.opts.Broker, err)
	}

	filter := s.Filter()
	token = s.client.Subscribe(filter, s.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		deviceID, _ := DeviceIDFromTopic(msg.Topic(), s.opts.Topic)
		s.handler.Handle(ctx, "mqtt", deviceID, msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("subscribe to topic %s: %w", filter, token.Error())
	}

	log.Info().Str("topic", filter).Msg("MQTT status subscriber started")

	<-ctx.Done()

	s.client.Unsubscribe(filter).WaitTimeout(time.Second)
	s.client.Disconnect(250)
	return nil
}
