// Package signaling implements the core of the WebRTC signaling server: the
// client and room registries, the protocol state machine that relays
// offer/answer/ICE traffic between participants, and the single-threaded
// dispatcher that serializes every mutation.
package signaling

import "github.com/google/uuid"

// ClientIdType is the 36-character hyphenated-hex identifier assigned to a
// client on accept. It is never re-derived from slot position.
type ClientIdType string

// RoomIdType is the 36-character hyphenated-hex identifier assigned to a
// room on creation.
type RoomIdType string

// newClientID returns a fresh, statistically-unique client identifier.
// A UUIDv4 string already is the wire format this system requires: 36
// characters, hyphenated hex, version nibble 4, variant nibble in {8,9,a,b}.
func newClientID() ClientIdType {
	return ClientIdType(uuid.NewString())
}

// newRoomID returns a fresh, statistically-unique room identifier.
func newRoomID() RoomIdType {
	return RoomIdType(uuid.NewString())
}
