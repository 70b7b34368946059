package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
)

// RoomView is the read model consumed by callers. It is recomputed from
// committed rows on every read and never cached.
type RoomView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	InviteCode    string            `json:"invite_code"`
	Members       []MemberView      `json:"members"`
	CurrentPayer  *MemberView       `json:"current_payer"`
	NextConfirmer *MemberView       `json:"next_confirmer"`
	Turns         []TurnView        `json:"turns"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type MemberView struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	RotationOrder int    `json:"rotation_order"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

type TurnView struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"member_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SortMembers orders members ascending by rotation order.
func SortMembers(members []Member) {
	sort.Slice(members, func(i, j int) bool {
		return members[i].RotationOrder < members[j].RotationOrder
	})
}

// CurrentIndex locates the member holding the current-payer token.
// Returns -1 when the pointer references nobody in the room (data drift).
func CurrentIndex(members []Member, currentPayerID *snowflake.ID) int {
	if currentPayerID == nil {
		return -1
	}
	for i, m := range members {
		if m.UserID == *currentPayerID {
			return i
		}
	}
	return -1
}

// Successor returns the circular successor of index i. The member after the
// last in rotation order is the first; a lone member succeeds themselves.
func Successor(i, memberCount int) int {
	if memberCount == 0 {
		return -1
	}
	return (i + 1) % memberCount
}

// ComposeView assembles the read model: members sorted by rotation order,
// turns newest-first, current payer and next confirmer derived with the
// same successor rule the rotation engine applies.
func ComposeView(room *Room, members []Member, users map[snowflake.ID]identitydomain.User, turns []Turn) *RoomView {
	SortMembers(members)

	memberViews := make([]MemberView, 0, len(members))
	for _, m := range members {
		view := MemberView{
			ID:            m.ID.String(),
			UserID:        m.UserID.String(),
			RotationOrder: m.RotationOrder,
			Name:          "Unknown",
		}
		if user, ok := users[m.UserID]; ok {
			view.Name = user.Name
			view.Email = user.Email
			view.AvatarURL = user.AvatarURL
		}
		memberViews = append(memberViews, view)
	}

	sort.Slice(turns, func(i, j int) bool {
		if turns[i].CreatedAt.Equal(turns[j].CreatedAt) {
			return turns[i].ID > turns[j].ID
		}
		return turns[i].CreatedAt.After(turns[j].CreatedAt)
	})
	turnViews := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		turnViews = append(turnViews, TurnView{
			ID:        t.ID.String(),
			MemberID:  t.MemberID.String(),
			UserID:    t.UserID.String(),
			CreatedAt: t.CreatedAt,
		})
	}

	view := &RoomView{
		ID:         room.ID.String(),
		Name:       room.Name,
		Slug:       room.Slug,
		InviteCode: room.InviteCode,
		Members:    memberViews,
		Turns:      turnViews,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}

	if i := CurrentIndex(members, room.CurrentPayerID); i >= 0 {
		view.CurrentPayer = &memberViews[i]
		next := Successor(i, len(members))
		view.NextConfirmer = &memberViews[next]
	}

	return view
}
