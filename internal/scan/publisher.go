package scan

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hsqsh/maisHack25/pkg/events"
)

// TopicScanEvents is the in-process topic the loop publishes on. Subscribers
// (terminal UI, relay forwarder) consume it through the same gochannel pub/sub.
const TopicScanEvents = "scan.events"

// EventEnvelope is the wire form of a scan event on the bus.
type EventEnvelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// DecodeEvent parses a bus message back into an envelope.
func DecodeEvent(msg *message.Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (m *Machine) publishEvent(e events.Event) {
	if m.publisher == nil {
		return
	}
	env := EventEnvelope{
		Type:       e.EventType(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		m.logger.Error("Scan", "Failed to marshal scan event", map[string]interface{}{"error": err.Error()})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := m.publisher.Publish(TopicScanEvents, msg); err != nil {
		m.logger.Error("Scan", "Failed to publish scan event", map[string]interface{}{"error": err.Error()})
	}
}
