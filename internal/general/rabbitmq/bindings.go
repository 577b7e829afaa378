package rabbitmq

import (
	"fmt"

	"ride-pool/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(contracts.ExchangePoolEvents, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangePoolEvents, err)
	}

	if _, err := ch.QueueDeclare(contracts.QueueNotifications, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", contracts.QueueNotifications, err)
	}

	if err := ch.QueueBind(contracts.QueueNotifications, contracts.RoutePrefixRide+"#", contracts.ExchangePoolEvents, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", contracts.QueueNotifications, contracts.ExchangePoolEvents, err)
	}

	return nil
}
