package kafka

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"qr-ticketing/internal/logger"
)

// EnsureTopicsExist creates topics through the controller broker. Topics that
// already exist are left alone; other failures are logged and skipped.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	var dialer kafka.Dialer
	controllerConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.LogKafka("ensure_topic", topic, "topic already exists")
		case err != nil:
			log.LogKafka("ensure_topic", topic, "create failed: "+err.Error())
		default:
			log.LogKafka("ensure_topic", topic, "created topic")
		}
	}
	return nil
}
