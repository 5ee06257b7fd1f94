// Package queue is the message queue the pipeline consumes source references
// from and publishes notifications to. Delivery is at-least-once: a received
// message that is not deleted becomes visible again after a timeout.
package queue

import (
	"context"
	"errors"
)

// ErrUnknownReceipt is returned by Delete for a receipt handle the queue does
// not recognise, typically because the message was redelivered since.
var ErrUnknownReceipt = errors.New("unknown receipt handle")

// Message is one delivery of a queued message.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Queue is the queue collaborator of the pipeline.
type Queue interface {
	// Receive returns up to max messages that are currently visible. An empty
	// result is not an error.
	Receive(ctx context.Context, queue string, max int) ([]Message, error)
	Send(ctx context.Context, queue, body string) error
	Delete(ctx context.Context, queue, receiptHandle string) error
}
