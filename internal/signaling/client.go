package signaling

import (
	"errors"
)

// ConnHandle is the opaque connection handle owned by the WebSocket I/O
// layer. The core never dereferences it beyond equality and the Send
// callback (§3): it does not read frames, inspect addresses, or manage
// buffers. In production it wraps *websocket.Conn (internal/transport); in
// tests it is a lightweight fake.
type ConnHandle interface {
	// Send delivers a single wire frame. It must not block the dispatcher
	// for more than O(1) work — implementations buffer or drop internally.
	// A non-nil error is treated as send failure.
	Send(frame []byte) error
	// Close releases the underlying connection. Idempotent.
	Close() error
}

// ClientState is one of the four states a client occupies at any instant
// (§3, §4.4).
type ClientState int

const (
	StateConnected ClientState = iota
	StateJoining
	StateInRoom
	StateDisconnecting
)

// Client is a single connected session. It is created on *accepted*,
// mutated only by the dispatcher, and destroyed on *closed* or reaper
// timeout. Identity is assigned once and never mutated.
type Client struct {
	ID     ClientIdType
	Handle ConnHandle

	State ClientState

	ConnectedAt  int64 // unix seconds
	LastActivity int64 // unix seconds
	Live         bool

	// Room is a non-owning back-reference to the room this client currently
	// occupies, or nil. Invariant: Room != nil <=> State == StateInRoom.
	Room *Room

	MessagesSent     uint64
	MessagesReceived uint64
	ErrorCount       uint64
}

var (
	// ErrRegistryFull is returned by ClientRegistry.Add / RoomRegistry.Create
	// when every slot is occupied.
	ErrRegistryFull = errors.New("signaling: registry full")
)

// clientSlot is one entry of the fixed-capacity client table. A slot whose
// client.Live is false is free and eligible for reuse.
type clientSlot struct {
	client Client
}

// ClientRegistry is the fixed-capacity, slotted table of live client
// sessions keyed by connection handle (§4.1). Allocation and lookup are
// O(N) scans — acceptable at the few-thousand-client scale this spec
// targets (§9) — traded for constant memory and no per-client heap churn
// after slot init.
type ClientRegistry struct {
	slots       []clientSlot
	cursor      int
	activeCount int
}

// NewClientRegistry preallocates a table of the given fixed capacity.
func NewClientRegistry(capacity int) *ClientRegistry {
	return &ClientRegistry{slots: make([]clientSlot, capacity)}
}

// Add allocates a free slot for a newly accepted connection, assigning a
// fresh identity and state=CONNECTED. Returns ErrRegistryFull when every
// slot is occupied. Only called from the dispatcher goroutine.
func (r *ClientRegistry) Add(handle ConnHandle, now int64) (*Client, error) {
	n := len(r.slots)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		slot := &r.slots[idx]
		if slot.client.Live {
			continue
		}
		slot.client = Client{
			ID:           newClientID(),
			Handle:       handle,
			State:        StateConnected,
			ConnectedAt:  now,
			LastActivity: now,
			Live:         true,
		}
		r.cursor = (idx + 1) % n
		r.activeCount++
		return &slot.client, nil
	}
	return nil, ErrRegistryFull
}

// FindByHandle scans live slots for the client owning the given connection
// handle. O(N).
func (r *ClientRegistry) FindByHandle(handle ConnHandle) (*Client, bool) {
	for i := range r.slots {
		c := &r.slots[i].client
		if c.Live && c.Handle == handle {
			return c, true
		}
	}
	return nil, false
}

// Remove flips liveness off and marks the client disconnecting, freeing its
// slot for reuse. The caller is responsible for having already performed
// any implicit room leave — Remove does not touch Room state.
func (r *ClientRegistry) Remove(c *Client) {
	if !c.Live {
		return
	}
	c.Live = false
	c.State = StateDisconnecting
	c.Handle = nil
	r.activeCount--
}

// ActiveCount reports the number of live slots.
func (r *ClientRegistry) ActiveCount() int {
	return r.activeCount
}

// Capacity reports the fixed number of slots the registry was created with.
func (r *ClientRegistry) Capacity() int {
	return len(r.slots)
}

// ForEachLive invokes fn for every live client, in slot order. Used only by
// the reaper; fn must not mutate the registry's slot occupancy directly
// (call Remove through the normal path instead).
func (r *ClientRegistry) ForEachLive(fn func(*Client)) {
	for i := range r.slots {
		c := &r.slots[i].client
		if c.Live {
			fn(c)
		}
	}
}
