package signaling

import (
	"encoding/json"
	"errors"
)

var errEmptyEvent = errors.New("signaling: envelope missing event")

// Event names exchanged over the wire. The recognized vocabulary is closed;
// anything else is an unknown event (§4.4).
type Event string

const (
	EventClientID     Event = "client-id"
	EventJoinRoom     Event = "join-room"
	EventRoomCreated  Event = "room-created"
	EventParticipants Event = "participants"
	EventLeaveRoom    Event = "leave-room"
	EventOffer        Event = "offer"
	EventAnswer       Event = "answer"
	EventIceCandidate Event = "ice-candidate"
	EventError        Event = "error"
)

// knownEvents is the set of event names the dispatcher will route. Anything
// not in this set is treated as an unknown event: counted, dropped, no reply.
var knownEvents = map[Event]bool{
	EventJoinRoom:     true,
	EventLeaveRoom:    true,
	EventOffer:        true,
	EventAnswer:       true,
	EventIceCandidate: true,
}

// Envelope is the wire frame: exactly two top-level keys, `event` and
// `data`. `data` is an opaque JSON value until a handler unmarshals it into
// a concrete payload type; this keeps the codec from interpreting SDP or
// ICE candidate contents, which the core is forbidden from parsing.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes a single WebSocket text frame into an Envelope. A
// malformed frame or one missing `event` is reported as an error; the
// caller (the dispatcher's receive callback) counts it and drops the frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, errEmptyEvent
	}
	return env, nil
}

// newEnvelope marshals an event name and a data value (object, slice, or
// string) into a wire-ready frame. Payloads are never double-serialized:
// structured events carry JSON objects, `error` carries a bare string.
func newEnvelope(event Event, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// --- Client -> Server payloads ---

type joinRoomPayload struct {
	RoomID   string `json:"roomId,omitempty"`
	RoomName string `json:"roomName,omitempty"`
}

// relayEnvelope captures the three point-to-point signaling payloads
// (offer/answer/ice-candidate), which share identical routing rules and
// differ only in which opaque field carries the payload.
type relayEnvelope struct {
	TargetClientID string          `json:"targetClientId"`
	Opaque         json.RawMessage `json:"-"`
}

// relayPayloadKey returns the `data` field name carrying the opaque
// signaling payload for a relay event.
func relayPayloadKey(event Event) string {
	switch event {
	case EventOffer:
		return "offer"
	case EventAnswer:
		return "answer"
	case EventIceCandidate:
		return "candidate"
	default:
		return ""
	}
}

// parseRelayEnvelope extracts the target client ID and the opaque payload
// carried under the event-specific key, without interpreting the payload.
func parseRelayEnvelope(event Event, data json.RawMessage) (relayEnvelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return relayEnvelope{}, err
	}
	var out relayEnvelope
	if rawTarget, ok := fields["targetClientId"]; ok {
		if err := json.Unmarshal(rawTarget, &out.TargetClientID); err != nil {
			return relayEnvelope{}, err
		}
	}
	out.Opaque = fields[relayPayloadKey(event)]
	return out, nil
}

// --- Server -> Client payloads ---

type clientIDPayload struct {
	ClientID string `json:"clientId"`
}

type roomCreatedPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type participantsPayload struct {
	RoomID       string   `json:"roomId"`
	Participants []string `json:"participants"`
}

// buildRelayData assembles the outgoing {fromClientId, <key>: <opaque>}
// object for a relayed offer/answer/ice-candidate, passing the sender's
// payload through verbatim — the core never parses SDP or ICE contents.
func buildRelayData(event Event, fromClientID ClientIdType, opaque json.RawMessage) (json.RawMessage, error) {
	if opaque == nil {
		opaque = json.RawMessage("null")
	}
	fields := map[string]json.RawMessage{
		relayPayloadKey(event): opaque,
	}
	fromRaw, err := json.Marshal(string(fromClientID))
	if err != nil {
		return nil, err
	}
	fields["fromClientId"] = fromRaw
	return json.Marshal(fields)
}
