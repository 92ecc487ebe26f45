package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeRejectsMissingEvent(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestParseEnvelopeRejectsMalformedJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseEnvelopeRoundTrip(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"join-room","data":{"roomName":"demo"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoinRoom, env.Event)

	var p joinRoomPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "demo", p.RoomName)
}

func TestNewEnvelopeNeverDoubleSerializesErrorString(t *testing.T) {
	frame, err := newEnvelope(EventError, "Not in a room")
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))

	var reason string
	require.NoError(t, json.Unmarshal(env.Data, &reason))
	assert.Equal(t, "Not in a room", reason)
}

func TestBuildRelayDataPassesOpaquePayloadVerbatim(t *testing.T) {
	opaque := json.RawMessage(`{"sdp":"v=0...","type":"offer"}`)
	out, err := buildRelayData(EventOffer, "client-a", opaque)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))

	var from string
	require.NoError(t, json.Unmarshal(fields["fromClientId"], &from))
	assert.Equal(t, "client-a", from)
	assert.JSONEq(t, string(opaque), string(fields["offer"]))
}

func TestParseRelayEnvelopeExtractsTargetAndOpaquePayload(t *testing.T) {
	data := json.RawMessage(`{"targetClientId":"b","candidate":{"candidate":"..."}}`)
	rel, err := parseRelayEnvelope(EventIceCandidate, data)
	require.NoError(t, err)
	assert.Equal(t, "b", rel.TargetClientID)
	assert.JSONEq(t, `{"candidate":"..."}`, string(rel.Opaque))
}
