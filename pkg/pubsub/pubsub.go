package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published during a pipeline run.
const (
	TopicPipelineStatus = "pipeline_status"
	TopicTaskResult     = "task_result"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "pipeline_status", "task_result")
	Type    string          `json:"type"`    // Event type (e.g., "running", "up-to-date", "executed", "failed")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// PipelineStatus describes where a run currently stands.
type PipelineStatus struct {
	State   string `json:"state"`   // idle, running, watching, done, failed
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current task number (1-based)
	Total   int    `json:"total"`   // Total number of tasks
}
