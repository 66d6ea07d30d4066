package models

type NotificationEvent string

const (
	EventBookingConfirmed NotificationEvent = "booking_confirmed"
	EventApproachingTurn  NotificationEvent = "approaching_turn"
	EventYourTurn         NotificationEvent = "your_turn"
	EventQueuePaused      NotificationEvent = "queue_paused"
	EventQueueResumed     NotificationEvent = "queue_resumed"
	EventQueueDelayed     NotificationEvent = "queue_delayed"
)

// Notification is a request handed to the notification collaborator.
type Notification struct {
	UserID  string            `json:"user_id"`
	Event   NotificationEvent `json:"event"`
	Payload map[string]any    `json:"payload"`
}
