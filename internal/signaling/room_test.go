package signaling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *Client {
	return &Client{ID: ClientIdType(id), Handle: nullConn{}, Live: true}
}

func TestRoomAddParticipantFillsLowestIndexSlot(t *testing.T) {
	rm := &Room{ID: "r1"}
	a := newTestClient("a")
	require.NoError(t, rm.AddParticipant(a, 10))

	assert.Equal(t, 1, rm.Count)
	assert.Same(t, a, rm.Participants[0].Client)
	assert.True(t, rm.Participants[0].IsOwner)
	assert.Same(t, a, rm.Owner)
	assert.Equal(t, StateInRoom, a.State)
	assert.Same(t, rm, a.Room)
}

func TestRoomAddParticipantRejectsFull(t *testing.T) {
	rm := &Room{ID: "r1"}
	for i := 0; i < MaxParticipants; i++ {
		require.NoError(t, rm.AddParticipant(newTestClient(string(rune('a'+i))), 1))
	}
	seventh := newTestClient("seventh")
	assert.ErrorIs(t, rm.AddParticipant(seventh, 1), ErrRoomFull)
}

func TestRoomAddParticipantRejectsDuplicateAndCrossRoom(t *testing.T) {
	rm1 := &Room{ID: "r1"}
	rm2 := &Room{ID: "r2"}
	a := newTestClient("a")
	require.NoError(t, rm1.AddParticipant(a, 1))

	assert.ErrorIs(t, rm1.AddParticipant(a, 1), ErrAlreadyInThisRoom)
	assert.ErrorIs(t, rm2.AddParticipant(a, 1), ErrAlreadyInOtherRoom)
}

func TestRoomRemoveParticipantPromotesLowestIndexOwner(t *testing.T) {
	rm := &Room{ID: "r1"}
	owner := newTestClient("owner")
	other := newTestClient("other")
	require.NoError(t, rm.AddParticipant(owner, 1))
	require.NoError(t, rm.AddParticipant(other, 1))

	require.NoError(t, rm.RemoveParticipant(owner, 2))

	assert.Equal(t, 1, rm.Count)
	assert.Same(t, other, rm.Owner)
	assert.True(t, rm.Participants[1].IsOwner)
	assert.Nil(t, owner.Room)
	assert.Equal(t, StateConnected, owner.State)
}

func TestRoomRemoveParticipantLastOneLeavesNoOwner(t *testing.T) {
	rm := &Room{ID: "r1"}
	owner := newTestClient("owner")
	require.NoError(t, rm.AddParticipant(owner, 1))
	require.NoError(t, rm.RemoveParticipant(owner, 2))

	assert.Equal(t, 0, rm.Count)
	assert.Nil(t, rm.Owner)
}

func TestRoomRemoveParticipantNotFound(t *testing.T) {
	rm := &Room{ID: "r1"}
	assert.ErrorIs(t, rm.RemoveParticipant(newTestClient("ghost"), 1), ErrParticipantNotFound)
}

func TestRoomOrderedParticipantIDsReflectsSlotOrder(t *testing.T) {
	rm := &Room{ID: "r1"}
	a := newTestClient("a")
	b := newTestClient("b")
	require.NoError(t, rm.AddParticipant(a, 1))
	require.NoError(t, rm.AddParticipant(b, 1))
	assert.Equal(t, []string{"a", "b"}, rm.OrderedParticipantIDs())
}

func TestRoomBroadcastExcludesSenderAndSkipsDead(t *testing.T) {
	rm := &Room{ID: "r1"}
	sender := newTestClient("sender")
	live := newTestClient("live")
	dead := newTestClient("dead")
	dead.Live = false

	require.NoError(t, rm.AddParticipant(sender, 1))
	require.NoError(t, rm.AddParticipant(live, 1))
	require.NoError(t, rm.AddParticipant(dead, 1))

	n := rm.Broadcast(sender, []byte(`{}`))
	assert.Equal(t, 1, n)
}

func TestRoomRegistryCreateAddsOwnerAsFirstParticipant(t *testing.T) {
	rr := NewRoomRegistry(2)
	owner := newTestClient("owner")
	rm, err := rr.Create("demo", owner, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, rm.Count)
	assert.Equal(t, "demo", rm.Name)
	assert.Len(t, string(rm.ID), 36)
}

func TestRoomRegistryCreateFullReturnsError(t *testing.T) {
	rr := NewRoomRegistry(1)
	_, err := rr.Create("r1", nil, 1)
	require.NoError(t, err)

	_, err = rr.Create("r2", nil, 1)
	assert.ErrorIs(t, err, ErrRegistryFull)
}

func TestRoomRegistryFindByIDOnlyMatchesActive(t *testing.T) {
	rr := NewRoomRegistry(1)
	rm, err := rr.Create("r1", nil, 1)
	require.NoError(t, err)

	found, ok := rr.FindByID(rm.ID)
	require.True(t, ok)
	assert.Same(t, rm, found)

	rr.ReapEmpty()
	_, ok = rr.FindByID(rm.ID)
	assert.False(t, ok)
}

func TestRoomRegistryReapEmptyFreesSlotForReuse(t *testing.T) {
	rr := NewRoomRegistry(1)
	owner := newTestClient("owner")
	rm, err := rr.Create("r1", owner, 1)
	require.NoError(t, err)
	require.NoError(t, rm.RemoveParticipant(owner, 2))

	rr.ReapEmpty()
	assert.Equal(t, 0, rr.ActiveCount())

	_, err = rr.Create("r2", nil, 3)
	assert.NoError(t, err, "reaped slot must be reusable")
}

func TestRoomRegistryReapEmptyKeepsNonEmptyRooms(t *testing.T) {
	rr := NewRoomRegistry(1)
	owner := newTestClient("owner")
	_, err := rr.Create("r1", owner, 1)
	require.NoError(t, err)

	rr.ReapEmpty()
	assert.Equal(t, 1, rr.ActiveCount())
}

func TestTruncateRoomNameDefaultsWhenEmpty(t *testing.T) {
	assert.Equal(t, "Unnamed Room", truncateRoomName(""))
}

func TestTruncateRoomNameClampsToMaxBytes(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := truncateRoomName(long)
	assert.LessOrEqual(t, len(got), maxRoomNameBytes)
}
