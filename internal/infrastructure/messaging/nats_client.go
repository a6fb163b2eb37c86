package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// InvalidationRequest asks every instance to drop a cached activity histogram
type InvalidationRequest struct {
	Address string `json:"address"`
}

// InvalidationHandler is called for each received invalidation request
type InvalidationHandler func(ctx context.Context, address string) error

// NATSClient publishes edge events and receives cache invalidation requests
type NATSClient struct {
	mu     sync.RWMutex
	conn   *nats.Conn
	sub    *nats.Subscription
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSClient creates a new NATS client
func NewNATSClient(cfg *config.NATSConfig, logger *logger.Logger) *NATSClient {
	return &NATSClient{
		config: cfg,
		logger: logger.WithComponent("nats-client"),
	}
}

// Connect connects to the NATS server
func (n *NATSClient) Connect(ctx context.Context) error {
	if !n.config.Enabled {
		n.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	n.logger.Info("Connecting to NATS server", zap.String("url", n.config.URL))

	opts := []nats.Option{
		nats.Name("ens-identity-graph"),
		nats.Timeout(n.config.ConnectTimeout),
		nats.ReconnectWait(n.config.ReconnectDelay),
		nats.MaxReconnects(n.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			n.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			n.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	return nil
}

// EdgeSubject returns the subject edge events of a type are published on
func (n *NATSClient) EdgeSubject(eventType entity.EdgeEventType) string {
	return fmt.Sprintf("%s.edges.%s", n.config.SubjectPrefix, eventType)
}

// InvalidationSubject returns the subject cache invalidations are published on
func (n *NATSClient) InvalidationSubject() string {
	return fmt.Sprintf("%s.activity.invalidate", n.config.SubjectPrefix)
}

// PublishEdgeEvent publishes a confirmed edge mutation. A disabled client drops the event.
func (n *NATSClient) PublishEdgeEvent(ctx context.Context, event entity.EdgeEvent) error {
	return n.publish(n.EdgeSubject(event.Type), event)
}

// PublishInvalidation asks subscribers to drop the cached histogram of address
func (n *NATSClient) PublishInvalidation(ctx context.Context, address string) error {
	if err := n.publish(n.InvalidationSubject(), InvalidationRequest{Address: address}); err != nil {
		return err
	}

	n.mu.RLock()
	conn := n.conn
	n.mu.RUnlock()
	if conn == nil {
		return nil
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	return nil
}

func (n *NATSClient) publish(subject string, payload interface{}) error {
	n.mu.RLock()
	conn := n.conn
	n.mu.RUnlock()
	if conn == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	n.logger.Debug("Published message", zap.String("subject", subject))
	return nil
}

// SubscribeInvalidations routes invalidation requests to handler using the configured queue group
func (n *NATSClient) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return nil
	}

	subject := n.InvalidationSubject()
	sub, err := n.conn.QueueSubscribe(subject, n.config.QueueGroup, func(msg *nats.Msg) {
		n.handleInvalidation(ctx, msg, handler)
	})
	if err != nil {
		n.logger.Error("Failed to subscribe to subject", zap.Error(err))
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	n.sub = sub
	n.logger.Info("Subscribed to cache invalidations",
		zap.String("subject", subject),
		zap.String("queue_group", n.config.QueueGroup))
	return nil
}

func (n *NATSClient) handleInvalidation(ctx context.Context, msg *nats.Msg, handler InvalidationHandler) {
	var req InvalidationRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Address == "" {
		n.logger.Warn("Ignoring malformed invalidation request", zap.ByteString("data", msg.Data), zap.Error(err))
		return
	}

	if err := handler(ctx, req.Address); err != nil {
		n.logger.Error("Failed to invalidate activity cache",
			zap.String("address", req.Address),
			zap.Error(err))
		return
	}

	n.logger.Info("Invalidated activity cache", zap.String("address", req.Address))
}

// Disconnect unsubscribes and drains the connection
func (n *NATSClient) Disconnect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe: %w", err))
		}
		n.sub = nil
	}
	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain connection: %w", err))
		}
		n.conn = nil
	}
	return errors.Join(errs...)
}

// IsConnected checks if connected to NATS
func (n *NATSClient) IsConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn != nil && n.conn.IsConnected()
}
