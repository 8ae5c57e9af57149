// Package pubsub publishes finished ingest runs to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/JakeFAU/oews-ingest/internal/store"
)

// Publisher wraps a Pub/Sub topic publisher.
type Publisher struct {
	publisher *pubsub.Publisher
}

// New creates a Publisher for the provided topic publisher.
func New(publisher *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

// Publish sends run as JSON and waits for the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, run store.Run) (string, error) {
	if p.publisher == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	msg, err := newMessage(run)
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish run %s: %w", run.ID, err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p.publisher != nil {
		p.publisher.Stop()
	}
}

// newMessage carries the run summary as the body and its identity as
// attributes so subscribers can filter without decoding.
func newMessage(run store.Run) (*pubsub.Message, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshal run: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": run.ID.String(),
			"kind":   run.Kind,
			"status": string(run.Status),
		},
	}, nil
}
