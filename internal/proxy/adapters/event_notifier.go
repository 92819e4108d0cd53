package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JulianoL13/proxy-rotator/internal/common/events"
	"github.com/JulianoL13/proxy-rotator/internal/common/queue"
	"github.com/JulianoL13/proxy-rotator/internal/proxy"
)

const DefaultTopic = "proxies:refreshed"

type EventNotifier struct {
	publisher queue.Publisher
	topic     string
}

func NewEventNotifier(publisher queue.Publisher, topic string) *EventNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &EventNotifier{publisher: publisher, topic: topic}
}

func (n *EventNotifier) Notify(ctx context.Context, event events.PoolRefreshedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.publisher.Publish(ctx, n.topic, payload)
}

var _ proxy.Notifier = (*EventNotifier)(nil)
