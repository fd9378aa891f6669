package runtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_One_Room_One_Member(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	memberID := uuid.NewString()
	roomID := uuid.NewString()

	// Given an empty registry
	req.False(registry.IsMember(roomID, memberID))
	req.Empty(registry.Members(roomID))

	// When a member joins a room
	registry.Join(roomID, memberID)

	// Then the member is present
	req.True(registry.IsMember(roomID, memberID))
	req.Equal([]string{memberID}, registry.Members(roomID))
}

func TestRegistry_Leave_Last_Member_Prunes_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	memberID := uuid.NewString()
	roomID := uuid.NewString()

	// Given a member inside a room
	registry.Join(roomID, memberID)

	// When the member leaves
	registry.Leave(roomID, memberID)

	// Then the member is gone and the room entry is removed
	req.False(registry.IsMember(roomID, memberID))
	req.Empty(registry.Members(roomID))
}

func TestRegistry_Leave_One_Room_Multiple_Members(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	memberID1 := uuid.NewString()
	memberID2 := uuid.NewString()
	roomID := uuid.NewString()

	// Given two members inside a room
	registry.Join(roomID, memberID1)
	registry.Join(roomID, memberID2)

	// When one member leaves
	registry.Leave(roomID, memberID1)

	// Then only the other member is left
	req.False(registry.IsMember(roomID, memberID1))
	req.True(registry.IsMember(roomID, memberID2))
	req.Equal([]string{memberID2}, registry.Members(roomID))
}

func TestRegistry_Leave_Non_Member_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	memberID := uuid.NewString()
	roomID := uuid.NewString()

	registry.Join(roomID, memberID)

	// When someone who never joined leaves
	registry.Leave(roomID, uuid.NewString())
	registry.Leave(uuid.NewString(), memberID)

	// Then nothing changed
	req.True(registry.IsMember(roomID, memberID))
}

func TestRegistry_Two_Sessions_Same_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	memberID := uuid.NewString()
	roomID := uuid.NewString()

	// Given the same identity joined from two sessions
	registry.Join(roomID, memberID)
	registry.Join(roomID, memberID)

	// When one session leaves
	registry.Leave(roomID, memberID)

	// Then the identity is still present until the last session leaves
	req.True(registry.IsMember(roomID, memberID))

	registry.Leave(roomID, memberID)
	req.False(registry.IsMember(roomID, memberID))
	req.Empty(registry.Members(roomID))
}

func TestRegistry_Concurrent_Join_Leave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		memberID := uuid.NewString()
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Join(roomID, memberID)
			registry.IsMember(roomID, memberID)
			registry.Leave(roomID, memberID)
		}()
	}
	wg.Wait()

	// Then every joined member left and the room is pruned
	req.Empty(registry.Members(roomID))
}
