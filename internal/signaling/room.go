package signaling

import (
	"errors"
	"unicode/utf8"
)

// MaxParticipants is the hard per-room participant cap. It is a constant,
// not configurable (§6).
const MaxParticipants = 6

// RoomState is one of the three states a room occupies (§3). The zero value
// is none of them and marks an unused registry slot.
type RoomState int

const (
	RoomActive RoomState = iota + 1
	RoomEmpty
	RoomClosing
)

// participantSlot is one entry of a room's fixed participant array. Empty
// iff Client is nil.
type participantSlot struct {
	Client   *Client
	JoinedAt int64
	IsOwner  bool
}

// Room is a bounded multiset of clients exchanging signaling payloads
// (§3). Created when a join references an unknown or absent room
// identifier; mutated only by the dispatcher.
type Room struct {
	ID   RoomIdType
	Name string

	Participants [MaxParticipants]participantSlot
	Count        int

	State RoomState

	CreatedAt    int64
	LastActivity int64

	// Owner is a non-owning reference to the participant currently holding
	// ownership, or nil.
	Owner *Client
}

var (
	ErrRoomFull            = errors.New("signaling: room full")
	ErrAlreadyInThisRoom   = errors.New("signaling: client already in this room")
	ErrAlreadyInOtherRoom  = errors.New("signaling: client already in another room")
	ErrParticipantNotFound = errors.New("signaling: participant not found")
)

const maxRoomNameBytes = 63
const defaultRoomName = "Unnamed Room"

// truncateRoomName clamps a room name to maxRoomNameBytes, defaulting to
// "Unnamed Room" when empty, and never splitting a multi-byte UTF-8
// sequence.
func truncateRoomName(name string) string {
	if name == "" {
		name = defaultRoomName
	}
	if len(name) <= maxRoomNameBytes {
		return name
	}
	b := []byte(name)[:maxRoomNameBytes]
	for len(b) > 0 && !utf8ValidTail(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

// utf8ValidTail reports whether b does not end mid-rune: its last rune
// decodes completely (a truncated sequence decodes as RuneError of size 1).
func utf8ValidTail(b []byte) bool {
	r, size := utf8.DecodeLastRune(b)
	return r != utf8.RuneError || size > 1
}

// AddParticipant places client in the lowest-index empty slot. Rejects a
// full room, a client already present (ALREADY_IN_THIS), or a client whose
// current_room back-reference points elsewhere (ALREADY_IN_OTHER) (§4.3).
func (rm *Room) AddParticipant(c *Client, now int64) error {
	if c.Room == rm {
		return ErrAlreadyInThisRoom
	}
	if c.Room != nil {
		return ErrAlreadyInOtherRoom
	}
	if rm.Count >= MaxParticipants {
		return ErrRoomFull
	}
	for i := range rm.Participants {
		if rm.Participants[i].Client != nil {
			continue
		}
		rm.Participants[i] = participantSlot{Client: c, JoinedAt: now, IsOwner: rm.Owner == nil}
		if rm.Owner == nil {
			rm.Owner = c
		}
		rm.Count++
		c.Room = rm
		c.State = StateInRoom
		c.LastActivity = now
		rm.LastActivity = now
		return nil
	}
	// Unreachable given the Count check above, but kept for safety.
	return ErrRoomFull
}

// RemoveParticipant clears the slot matching c, decrements Count, resets
// c's back-reference and state to CONNECTED, and — if c held ownership and
// the room is non-empty afterwards — promotes the lowest-index remaining
// participant to owner (§4.3).
func (rm *Room) RemoveParticipant(c *Client, now int64) error {
	idx := -1
	for i := range rm.Participants {
		if rm.Participants[i].Client == c {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrParticipantNotFound
	}
	wasOwner := rm.Participants[idx].IsOwner
	rm.Participants[idx] = participantSlot{}
	rm.Count--
	c.Room = nil
	c.State = StateConnected
	c.LastActivity = now
	rm.LastActivity = now

	if wasOwner {
		rm.Owner = nil
		for i := range rm.Participants {
			if rm.Participants[i].Client == nil {
				continue
			}
			rm.Participants[i].IsOwner = true
			rm.Owner = rm.Participants[i].Client
			break
		}
	}
	return nil
}

// FindParticipant scans the room's fixed slots for a client with the given
// identifier. O(MaxParticipants).
func (rm *Room) FindParticipant(id ClientIdType) (*Client, bool) {
	for i := range rm.Participants {
		c := rm.Participants[i].Client
		if c != nil && c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// OrderedParticipantIDs returns the IDs of occupied slots in slot order,
// the ordering the `participants` broadcast payload (§4.4, §6) requires.
func (rm *Room) OrderedParticipantIDs() []string {
	ids := make([]string, 0, rm.Count)
	for i := range rm.Participants {
		if c := rm.Participants[i].Client; c != nil {
			ids = append(ids, string(c.ID))
		}
	}
	return ids
}

// Broadcast delivers frame to every live participant other than exclude,
// returning the number of successful sends (§4.3). Send failures are
// counted on the recipient and do not abort the broadcast.
func (rm *Room) Broadcast(exclude *Client, frame []byte) int {
	sent := 0
	for i := range rm.Participants {
		c := rm.Participants[i].Client
		if c == nil || c == exclude || !c.Live {
			continue
		}
		if err := c.Handle.Send(frame); err != nil {
			c.ErrorCount++
			continue
		}
		c.MessagesSent++
		sent++
	}
	return sent
}

// roomSlot is one entry of the fixed-capacity room table.
type roomSlot struct {
	room Room
}

// RoomRegistry is the fixed-capacity, slotted table of rooms (§4.2).
type RoomRegistry struct {
	slots  []roomSlot
	cursor int
}

// NewRoomRegistry preallocates a table of the given fixed capacity.
func NewRoomRegistry(capacity int) *RoomRegistry {
	return &RoomRegistry{slots: make([]roomSlot, capacity)}
}

// Create allocates the first slot whose state is not ACTIVE, initializing
// identifier, truncated name, timestamps, state=ACTIVE, and owner. If owner
// is non-nil it is added as the first participant. Returns ErrRegistryFull
// when every slot is ACTIVE.
func (r *RoomRegistry) Create(name string, owner *Client, now int64) (*Room, error) {
	n := len(r.slots)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		slot := &r.slots[idx]
		if slot.room.State == RoomActive {
			continue
		}
		slot.room = Room{
			ID:           newRoomID(),
			Name:         truncateRoomName(name),
			State:        RoomActive,
			CreatedAt:    now,
			LastActivity: now,
		}
		r.cursor = (idx + 1) % n
		if owner != nil {
			// Create never fails on this path: a fresh room always has room.
			_ = slot.room.AddParticipant(owner, now)
		}
		return &slot.room, nil
	}
	return nil, ErrRegistryFull
}

// FindByID scans for an ACTIVE room with the given identifier. O(N).
func (r *RoomRegistry) FindByID(id RoomIdType) (*Room, bool) {
	for i := range r.slots {
		rm := &r.slots[i].room
		if rm.State == RoomActive && rm.ID == id {
			return rm, true
		}
	}
	return nil, false
}

// FindByClient scans every ACTIVE room's participant slots for client.
// O(N*MaxParticipants); callers should prefer the client's Room
// back-reference (§4.2).
func (r *RoomRegistry) FindByClient(c *Client) (*Room, bool) {
	for i := range r.slots {
		rm := &r.slots[i].room
		if rm.State != RoomActive {
			continue
		}
		if _, ok := rm.FindParticipant(c.ID); ok {
			return rm, true
		}
	}
	return nil, false
}

// ReapEmpty transitions every ACTIVE room with zero participants to
// CLOSING and frees its slot, making it eligible for reuse by Create
// (§4.2, §4.6).
func (r *RoomRegistry) ReapEmpty() {
	for i := range r.slots {
		rm := &r.slots[i].room
		if rm.State == RoomActive && rm.Count == 0 {
			rm.State = RoomClosing
			r.slots[i].room = Room{}
		}
	}
}

// ActiveCount reports the number of ACTIVE rooms.
func (r *RoomRegistry) ActiveCount() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].room.State == RoomActive {
			n++
		}
	}
	return n
}

// Capacity reports the fixed number of slots the registry was created with.
func (r *RoomRegistry) Capacity() int {
	return len(r.slots)
}
