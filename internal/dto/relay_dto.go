package dto

// NotifyRequest is the body of POST /api/notify.
type NotifyRequest struct {
	Session string                 `json:"session" validate:"required"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// NotifyResponse reports how many peers received the notification.
// Throttled is only set when the per-session cooldown suppressed delivery.
type NotifyResponse struct {
	Delivered int  `json:"delivered"`
	Throttled bool `json:"throttled,omitempty"`
}

// RelayMessage is the envelope delivered to every socket in a session.
type RelayMessage struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}
