// Package kafkabackend implements a hand-off backend: a task counts as
// executed once it is durably published to a topic.
package kafkabackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

const defaultTimeout = 3 * time.Second

// Message is the JSON value written for each task.
type Message struct {
	TaskID  string          `json:"task_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Receipt is returned as the outcome result on success.
type Receipt struct {
	Topic string `json:"topic"`
	Key   string `json:"key"`
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Backend publishes tasks to a single topic.
type Backend struct {
	name    string
	topic   string
	writer  writer
	timeout time.Duration
}

// New creates a Kafka backend from a comma separated broker list.
func New(name, brokersCSV, topic string, timeout time.Duration) (*Backend, error) {
	brokers := splitCSV(brokersCSV)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka backend %s: no brokers", name)
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka backend %s: topic is required", name)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.LeastBytes{},
		RequiredAcks: kgo.RequireOne,
		// Retries belong to the dispatcher.
		MaxAttempts: 1,
	}

	return &Backend{
		name:    name,
		topic:   topic,
		writer:  w,
		timeout: timeout,
	}, nil
}

// Name returns the backend's name.
func (b *Backend) Name() string {
	return b.name
}

// Invoke publishes the task keyed by its id.
func (b *Backend) Invoke(ctx context.Context, task domain.Task) domain.Outcome {
	value, err := json.Marshal(Message{TaskID: task.ID, Kind: task.Kind, Payload: task.Payload})
	if err != nil {
		return domain.TerminalFailure(fmt.Errorf("%s: marshal task: %w", b.name, err))
	}

	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err = b.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(task.ID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return classify(fmt.Errorf("%s: publish to %s: %w", b.name, b.topic, err))
	}
	return domain.Success(Receipt{Topic: b.topic, Key: task.ID})
}

// Close flushes and closes the writer.
func (b *Backend) Close() error {
	return b.writer.Close()
}

func classify(err error) domain.Outcome {
	var kerr kgo.Error
	if errors.As(err, &kerr) {
		if kerr.Temporary() || kerr.Timeout() {
			return domain.TransientFailure(err)
		}
		return domain.TerminalFailure(err)
	}

	var werrs kgo.WriteErrors
	if errors.As(err, &werrs) {
		for _, e := range werrs {
			if e != nil && classify(e).Kind == domain.OutcomeTerminalFailure {
				return domain.TerminalFailure(err)
			}
		}
		return domain.TransientFailure(err)
	}

	if errors.Is(err, context.Canceled) {
		return domain.TerminalFailure(err)
	}

	// Dial failures, broker timeouts and deadline expiry.
	return domain.TransientFailure(err)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
