package outbox

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// topicPublisher 基于 Google Cloud Pub/Sub 主题实现 Publisher。
type topicPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewTopicPublisher 连接 Pub/Sub 并绑定目标主题。
func NewTopicPublisher(ctx context.Context, projectID, topicID string) (Publisher, func(), error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	cleanup := func() {
		topic.Stop()
		_ = client.Close()
	}
	return &topicPublisher{client: client, topic: topic}, cleanup, nil
}

func (p *topicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}
