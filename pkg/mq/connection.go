package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName 活动副作用事件走的 topic exchange
	ExchangeName = "contractorvet.activity"

	heartbeat = 10 * time.Second
)

// dialConfig 带连接名，RabbitMQ 管理界面里能区分 api 和 worker
func dialConfig(name string) amqp091.Config {
	props := amqp091.NewConnectionProperties()
	if name != "" {
		props.SetClientConnectionName(name)
	}
	return amqp091.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	}
}

// NewConnection dials RabbitMQ with a named connection.
func NewConnection(url, name string) (*amqp091.Connection, error) {
	conn, err := amqp091.DialConfig(url, dialConfig(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ as %q: %w", name, err)
	}
	return conn, nil
}

// DeclareExchange declares the activity exchange and its dead letter exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	if err := declareTopic(ch, ExchangeName); err != nil {
		return err
	}
	return declareTopic(ch, DLQExchangeName)
}

func declareTopic(ch *amqp091.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,
		amqp091.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}
