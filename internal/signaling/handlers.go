package signaling

import (
	"encoding/json"
	"log/slog"
	"time"
)

// handleAccept allocates a slot for a newly accepted connection and
// synchronously replies with the assigned identity (§2, §4.4 `client-id`).
// A registry that is full refuses the connection outright: no `client-id`
// is ever sent and the handle is closed (§8, boundary behavior).
func (d *Dispatcher) handleAccept(handle ConnHandle, now int64) {
	c, err := d.clients.Add(handle, now)
	if err != nil {
		slog.Warn("client registry full, refusing connection")
		recordEventOutcome("accept", "refused")
		handle.Close()
		return
	}

	frame, err := newEnvelope(EventClientID, clientIDPayload{ClientID: string(c.ID)})
	if err != nil {
		slog.Error("failed to build client-id envelope", "error", err)
		return
	}
	d.send(c, frame)
	recordEventOutcome("accept", "success")
}

// handleClosed processes a reported connection close: an implicit leave
// followed by removal from the client registry (§3, §4.4 "any state - on
// timeout or socket close").
func (d *Dispatcher) handleClosed(handle ConnHandle, now int64) {
	c, ok := d.clients.FindByHandle(handle)
	if !ok {
		return
	}
	d.disconnectClient(c, now)
}

// disconnectClient performs the implicit leave (if any), closes the
// underlying connection, and frees the client's slot. Shared by the close
// callback and the reaper — a reaper-evicted client must have its
// transport torn down too, since nothing else will ever read it again.
func (d *Dispatcher) disconnectClient(c *Client, now int64) {
	if c.Room != nil {
		d.leaveRoom(c, now)
	}
	c.Handle.Close()
	d.clients.Remove(c)
}

// handleMessage routes one parsed envelope to its protocol handler. Every
// received frame refreshes last-activity regardless of whether the event
// is recognized (§4.4 "Unknown events").
func (d *Dispatcher) handleMessage(handle ConnHandle, env Envelope, now int64) {
	c, ok := d.clients.FindByHandle(handle)
	if !ok {
		// The connection was already removed (e.g. a close raced a queued
		// message); nothing to route to.
		return
	}

	start := time.Now()
	c.LastActivity = now
	c.MessagesReceived++

	if !knownEvents[env.Event] {
		c.ErrorCount++
		recordEventOutcome(string(env.Event), "unknown")
		return
	}

	switch env.Event {
	case EventJoinRoom:
		d.handleJoinRoom(c, env.Data, now)
	case EventLeaveRoom:
		d.handleLeaveRoom(c, now)
	case EventOffer, EventAnswer, EventIceCandidate:
		d.handleRelay(c, env.Event, env.Data, now)
	}

	recordEventDuration(string(env.Event), start)
	recordEventOutcome(string(env.Event), "success")
}

// handleJoinRoom implements the three join-room rules of §4.4: implicit
// leave of any current room, resolve-or-create the target room, then
// attempt to add the client as a participant.
func (d *Dispatcher) handleJoinRoom(c *Client, data json.RawMessage, now int64) {
	var p joinRoomPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			c.ErrorCount++
			return
		}
	}

	if c.Room != nil {
		d.leaveRoom(c, now)
	}

	var room *Room
	if p.RoomID != "" {
		if rm, ok := d.rooms.FindByID(RoomIdType(p.RoomID)); ok {
			room = rm
		}
	}

	created := room == nil
	if created {
		rm, err := d.rooms.Create(p.RoomName, nil, now)
		if err != nil {
			d.sendError(c, "Cannot create room")
			return
		}
		room = rm
	}

	switch err := room.AddParticipant(c, now); err {
	case nil:
		if created {
			d.sendRoomCreated(c, room)
		}
		d.broadcastParticipants(room)
	case ErrRoomFull, ErrAlreadyInOtherRoom:
		// §4.4: "on ALREADY_IN_OTHER reply error with the same string"
		// as FULL.
		d.sendError(c, "Room is full (max 6 participants)")
	case ErrAlreadyInThisRoom:
		// Unreachable once the implicit leave above runs, but handled for
		// completeness of the AddParticipant contract.
		d.broadcastParticipants(room)
	}
}

// handleLeaveRoom implements the explicit leave-room event: a no-op when
// the client has no current room (§8, idempotence laws).
func (d *Dispatcher) handleLeaveRoom(c *Client, now int64) {
	if c.Room == nil {
		return
	}
	d.leaveRoom(c, now)
}

// leaveRoom removes c from its current room and, if the room is still
// non-empty afterwards, broadcasts the updated participant list to the
// remaining members. No message is ever sent to the leaver — by the time
// broadcastParticipants runs, c has already been cleared from the room's
// slots. If the room becomes empty, the broadcast is skipped; the reaper
// will free its slot on the next pass (§9, first open question, resolved
// this way).
func (d *Dispatcher) leaveRoom(c *Client, now int64) {
	room := c.Room
	if room == nil {
		return
	}
	if err := room.RemoveParticipant(c, now); err != nil {
		slog.Error("leaveRoom: client missing from its own back-referenced room", "clientId", c.ID, "roomId", room.ID, "error", err)
		return
	}
	if room.Count > 0 {
		d.broadcastParticipants(room)
	}
}

// handleRelay implements the shared offer/answer/ice-candidate routing
// rules of §4.4: reject with no room, missing target, or cross-room
// target; otherwise forward the opaque payload verbatim.
func (d *Dispatcher) handleRelay(c *Client, event Event, data json.RawMessage, now int64) {
	if c.Room == nil {
		d.sendError(c, "Not in a room")
		return
	}

	rel, err := parseRelayEnvelope(event, data)
	if err != nil {
		c.ErrorCount++
		return
	}
	if rel.TargetClientID == "" {
		d.sendError(c, "Missing target client ID")
		return
	}

	target, ok := c.Room.FindParticipant(ClientIdType(rel.TargetClientID))
	if !ok {
		d.sendError(c, "Target client not found in room")
		return
	}

	outData, err := buildRelayData(event, c.ID, rel.Opaque)
	if err != nil {
		slog.Error("failed to build relay payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: outData})
	if err != nil {
		slog.Error("failed to marshal relay envelope", "event", event, "error", err)
		return
	}
	d.send(target, frame)
}

// sendError delivers an `error` frame to c. The payload is the bare
// reason string, never wrapped in an object (§6, §9 second open question).
func (d *Dispatcher) sendError(c *Client, reason string) {
	frame, err := newEnvelope(EventError, reason)
	if err != nil {
		slog.Error("failed to build error envelope", "error", err)
		return
	}
	d.send(c, frame)
}

func (d *Dispatcher) sendRoomCreated(c *Client, room *Room) {
	frame, err := newEnvelope(EventRoomCreated, roomCreatedPayload{RoomID: string(room.ID), RoomName: room.Name})
	if err != nil {
		slog.Error("failed to build room-created envelope", "error", err)
		return
	}
	d.send(c, frame)
}

// broadcastParticipants sends the current, slot-ordered participant list
// to every live member of room, including a client that just joined.
func (d *Dispatcher) broadcastParticipants(room *Room) {
	payload := participantsPayload{RoomID: string(room.ID), Participants: room.OrderedParticipantIDs()}
	frame, err := newEnvelope(EventParticipants, payload)
	if err != nil {
		slog.Error("failed to build participants envelope", "error", err)
		return
	}
	room.Broadcast(nil, frame)
}

// send delivers frame to c, counting the outcome on the client (§7, "Send
// failure").
func (d *Dispatcher) send(c *Client, frame []byte) {
	if err := c.Handle.Send(frame); err != nil {
		c.ErrorCount++
		return
	}
	c.MessagesSent++
}
