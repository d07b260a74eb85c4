package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"bridgeguard/internal/config"
	"bridgeguard/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATSClient NATS client
type NATSClient struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

// NewNATSClient creates a NATS client with JetStream enabled
func NewNATSClient(url, streamName string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	if config.AppConfig != nil && config.AppConfig.NATS.Timeout > 0 {
		connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
		log.Printf("🔌 Using configured NATS timeout: %v", connectTimeout)
	} else {
		log.Printf("🔌 Using default NATS timeout: %v", connectTimeout)
	}

	// connect to NATS server
	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &NATSClient{
		conn:       conn,
		js:         js,
		streamName: streamName,
	}

	if err := client.ensureStream(); err != nil {
		log.Printf("⚠️ [NATS] Stream setup failed, publishing via core NATS only: %v", err)
	}

	metrics.NATSConnectionStatus.Set(1)
	return client, nil
}

// ensureStream makes sure the event stream exists
func (c *NATSClient) ensureStream() error {
	_, err := c.js.StreamInfo(c.streamName)
	if err == nil {
		log.Printf("✅ [NATS] Stream %s already exists", c.streamName)
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name: c.streamName,
		Subjects: []string{
			"bridgeguard.account.*",
			"bridgeguard.execution.*",
			"bridgeguard.route.*",
		},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	_, err = c.js.AddStream(streamConfig)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	log.Printf("✅ [NATS] Stream %s created", c.streamName)
	return nil
}

// PublishAccountEvent publishes an account lifecycle event
// (recovery initiated/confirmed/executed, guardian changes, batch executed)
func (c *NATSClient) PublishAccountEvent(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal account event: %w", err)
	}

	subject := fmt.Sprintf("bridgeguard.account.%s", eventType)
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish account event: %w", err)
	}

	log.Printf("📨 [NATS] Published account event: %s", subject)
	metrics.NATSEventsPublished.WithLabelValues("account", eventType).Inc()
	return nil
}

// PublishExecutionEvent publishes a route execution status event
func (c *NATSClient) PublishExecutionEvent(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal execution event: %w", err)
	}

	subject := fmt.Sprintf("bridgeguard.execution.%s", eventType)
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish execution event: %w", err)
	}

	log.Printf("📨 [NATS] Published execution event: %s", subject)
	metrics.NATSEventsPublished.WithLabelValues("execution", eventType).Inc()
	return nil
}

// SubscribeToExecutionEvents subscribes to execution status updates,
// used by the push service to forward updates to websocket clients
func (c *NATSClient) SubscribeToExecutionEvents(handler func(subject string, data []byte)) error {
	subject := "bridgeguard.execution.*"
	log.Printf("🔍 Subscribing to NATS subject: %s", subject)

	_, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err == nil {
		log.Printf("✅ NATS subscription success: %s", subject)
		return nil
	}

	log.Printf("⚠️ Core NATS subscription failed, trying JetStream: %v", err)

	_, err = c.js.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	log.Printf("✅ JetStream subscription success: %s", subject)
	return nil
}

// Close connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// GetConnection returns the underlying NATS connection
func (c *NATSClient) GetConnection() *nats.Conn {
	return c.conn
}
