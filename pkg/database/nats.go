package database

import (
	"fmt"
	"time"

	"support_chat_service/pkg/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NewNATSConn connects to NATS with client side reconnects enabled
func NewNATSConn(d Connection) (*nats.Conn, error) {
	nc, err := nats.Connect(d.ConnectStr,
		nats.Name("support_chat_service"),
		nats.MaxReconnects(d.RetryCount),
		nats.ReconnectWait(d.RetryInterval),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// RetryOnFailedConnect returns before the first connect, wait for it
	deadline := time.Now().Add(time.Duration(d.RetryCount+1) * d.RetryInterval)
	for !nc.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if !nc.IsConnected() {
		nc.Close()
		return nil, fmt.Errorf("NATS not connected after %d retries", d.RetryCount)
	}
	return nc, nil
}
