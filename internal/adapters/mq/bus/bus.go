// Package bus defines the message-bus contract the service consumes and
// publishes on. The broker client itself lives outside this repository;
// production deployments plug their client in behind these interfaces.
package bus

import "context"

// Delivery is one inbound message. Ack and Reject resolve the message with
// the broker; at most one of them is called, at most once. A delivery left
// unresolved is redelivered by the broker.
type Delivery interface {
	// ID identifies the delivery for logging.
	ID() string

	// Body returns the raw message payload.
	Body() []byte

	// Ack confirms the message has been handled (including the
	// handled-by-dropping case).
	Ack()

	// Reject returns the message to the broker without requeueing.
	Reject()
}

// Handler consumes one delivery. It must not block the bus for long;
// long-running work belongs on the rating queue.
type Handler func(ctx context.Context, d Delivery)

// Bus is the messaging surface the service depends on.
type Bus interface {
	// Listen subscribes h to messages on the exchange/routing-key pair.
	Listen(ctx context.Context, exchange, routingKey string, h Handler) error

	// Publish emits body on the exchange/routing-key pair.
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}
