package shared

import "context"

// RealtimePublisher pushes a message to every subscriber of a realtime topic
type RealtimePublisher interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// Realtime topic names
const (
	TopicNotifications = "notifications"
)

// DeliveryTopic is the topic carrying one delivery's updates
func DeliveryTopic(id string) string { return "delivery:" + id }

// SessionTopic mirrors one client's session to its open tabs
func SessionTopic(clientID string) string { return "session:" + clientID }

// ChatTopic carries one chat session's messages
func ChatTopic(id string) string { return "chat:" + id }
