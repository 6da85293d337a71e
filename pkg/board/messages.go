// Package board carries story state across execution-context boundaries:
// a host pushes authoritative state to embedded viewers through a
// versioned message envelope. Delivery is fire-and-forget, at most once;
// a lost message means the viewer keeps its last known state until the
// next update.
package board

import (
	"encoding/json"
	"time"

	"visualboard/pkg/schema"
)

// Protocol is the envelope version. A message with any other value is not
// ours and is ignored.
const Protocol = "visualboard-v1"

// Sender is the fixed origin tag of the host context.
const Sender = "visualboard-host"

type MessageType string

const (
	TypeStateUpdate MessageType = "STATE_UPDATE"
	TypeReset       MessageType = "RESET"
)

// Message is the only wire format this system defines.
type Message struct {
	Protocol    string             `json:"protocol"`
	Sender      string             `json:"sender"`
	Type        MessageType        `json:"type"`
	ScenarioKey string             `json:"scenarioKey,omitempty"`
	State       *schema.StoryState `json:"state,omitempty"`
	Timestamp   int64              `json:"timestamp"`
}

// NewStateUpdate builds a STATE_UPDATE envelope for a scenario.
func NewStateUpdate(scenarioKey string, state *schema.StoryState) Message {
	return Message{
		Protocol:    Protocol,
		Sender:      Sender,
		Type:        TypeStateUpdate,
		ScenarioKey: scenarioKey,
		State:       state,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// NewReset builds a RESET envelope for a scenario.
func NewReset(scenarioKey string) Message {
	return Message{
		Protocol:    Protocol,
		Sender:      Sender,
		Type:        TypeReset,
		ScenarioKey: scenarioKey,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// Decode validates raw bytes as an envelope. Anything that is not exactly
// ours — wrong protocol, wrong sender, unknown type, non-numeric
// timestamp, STATE_UPDATE without a state — is silently ignored (false),
// never an error, to tolerate unrelated traffic on the same channel.
func Decode(data []byte) (*Message, bool) {
	var probe struct {
		Protocol  string          `json:"protocol"`
		Sender    string          `json:"sender"`
		Type      MessageType     `json:"type"`
		Scenario  string          `json:"scenarioKey"`
		State     json.RawMessage `json:"state"`
		Timestamp *float64        `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, false
	}
	if probe.Protocol != Protocol || probe.Sender != Sender || probe.Timestamp == nil {
		return nil, false
	}

	msg := &Message{
		Protocol:    probe.Protocol,
		Sender:      probe.Sender,
		Type:        probe.Type,
		ScenarioKey: probe.Scenario,
		Timestamp:   int64(*probe.Timestamp),
	}

	switch probe.Type {
	case TypeStateUpdate:
		if len(probe.State) == 0 || string(probe.State) == "null" {
			return nil, false
		}
		var state schema.StoryState
		if err := json.Unmarshal(probe.State, &state); err != nil {
			return nil, false
		}
		msg.State = &state
		return msg, true
	case TypeReset:
		return msg, true
	}
	return nil, false
}
