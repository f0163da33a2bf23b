package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange           = "storefront.events"
	OrderConfirmedRoutingKey = "order.confirmed.v1"
	storefrontServiceName    = "storefront-engine"
)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

func storefrontQueueName(routingKey string) string {
	return serviceQueue(storefrontServiceName, routingKey)
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// DeclareOrderConfirmedQueue declares the durable queue downstream consumers
// read OrderConfirmed events from, named <service>.<routingKey>, and binds it
// to the events exchange.
func DeclareOrderConfirmedQueue(ch *amqp.Channel) (amqp.Queue, error) {
	if err := declareEventsExchange(ch); err != nil {
		return amqp.Queue{}, err
	}

	q, err := ch.QueueDeclare(
		storefrontQueueName(OrderConfirmedRoutingKey),
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, err
	}

	if err := ch.QueueBind(q.Name, OrderConfirmedRoutingKey, EventsExchange, false, nil); err != nil {
		return amqp.Queue{}, err
	}
	return q, nil
}
