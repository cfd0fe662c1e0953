package database

import (
	"fmt"
	"time"

	"support_chat_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ConnectRabbitMQWithRetry dial RabbitMQ, retrying with a fixed delay
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for attempt := 1; attempt <= d.RetryCount; attempt++ {
		conn, err = amqp.Dial(d.ConnectStr)
		if err == nil {
			logger.Log.Info("RabbitMQ connected", zap.Int("attempt", attempt))
			return conn, nil
		}

		logger.Log.Warn("RabbitMQ connect failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", d.RetryCount),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval)
	}

	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", d.RetryCount, err)
}
