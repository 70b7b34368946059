package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessorWrapsAround(t *testing.T) {
	assert.Equal(t, 1, Successor(0, 3))
	assert.Equal(t, 2, Successor(1, 3))
	assert.Equal(t, 0, Successor(2, 3))
	assert.Equal(t, 0, Successor(0, 1))
	assert.Equal(t, -1, Successor(0, 0))
}

func TestCurrentIndex(t *testing.T) {
	members := []Member{
		{ID: 1, UserID: 10, RotationOrder: 0},
		{ID: 2, UserID: 20, RotationOrder: 1},
	}

	twenty := snowflake.ID(20)
	ghost := snowflake.ID(99)

	assert.Equal(t, 1, CurrentIndex(members, &twenty))
	assert.Equal(t, -1, CurrentIndex(members, &ghost))
	assert.Equal(t, -1, CurrentIndex(members, nil))
}

func TestComposeViewOrdersMembersAndTurns(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payer := snowflake.ID(20)
	room := &Room{
		ID:             1,
		Name:           "Lunch",
		CurrentPayerID: &payer,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Deliberately out of order.
	members := []Member{
		{ID: 3, RoomID: 1, UserID: 30, RotationOrder: 2},
		{ID: 1, RoomID: 1, UserID: 10, RotationOrder: 0},
		{ID: 2, RoomID: 1, UserID: 20, RotationOrder: 1},
	}
	users := map[snowflake.ID]identitydomain.User{
		10: {ID: 10, Name: "Ana"},
		20: {ID: 20, Name: "Bruno"},
	}
	turns := []Turn{
		{ID: 100, RoomID: 1, MemberID: 1, UserID: 10, CreatedAt: now.Add(time.Minute)},
		{ID: 101, RoomID: 1, MemberID: 2, UserID: 20, CreatedAt: now.Add(2 * time.Minute)},
		{ID: 99, RoomID: 1, MemberID: 1, UserID: 10, CreatedAt: now.Add(2 * time.Minute)},
	}

	view := ComposeView(room, members, users, turns)

	require.Len(t, view.Members, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{
		view.Members[0].RotationOrder,
		view.Members[1].RotationOrder,
		view.Members[2].RotationOrder,
	})
	// Unknown profile falls back to a placeholder name.
	assert.Equal(t, "Unknown", view.Members[2].Name)

	require.NotNil(t, view.CurrentPayer)
	assert.Equal(t, "Bruno", view.CurrentPayer.Name)
	require.NotNil(t, view.NextConfirmer)
	assert.Equal(t, 2, view.NextConfirmer.RotationOrder)

	// Newest first, ties broken by id descending.
	require.Len(t, view.Turns, 3)
	assert.Equal(t, snowflake.ID(101).String(), view.Turns[0].ID)
	assert.Equal(t, snowflake.ID(99).String(), view.Turns[1].ID)
	assert.Equal(t, snowflake.ID(100).String(), view.Turns[2].ID)
}

func TestComposeViewWithDanglingPayer(t *testing.T) {
	ghost := snowflake.ID(999)
	room := &Room{ID: 1, Name: "Lunch", CurrentPayerID: &ghost}
	members := []Member{{ID: 1, RoomID: 1, UserID: 10, RotationOrder: 0}}

	view := ComposeView(room, members, nil, nil)

	assert.Nil(t, view.CurrentPayer)
	assert.Nil(t, view.NextConfirmer)
	require.Len(t, view.Members, 1)
}
