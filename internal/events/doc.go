// Package events publishes a JSON message to RabbitMQ for every finished
// job. Publishing is optional: without AMQP_URL the Publisher is nil and
// every method is a no-op.
package events
