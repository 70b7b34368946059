package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateRoomRequest) (*RoomView, error)
	// Join resolves the room by invite code, falling back to a raw room id.
	// Joining a room the user already belongs to is a no-op that still
	// returns the fresh view.
	Join(ctx context.Context, userID snowflake.ID, code string) (*RoomView, error)
	GetByID(ctx context.Context, id string) (*RoomView, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]RoomView, error)
}

type CreateRoomRequest struct {
	Name string
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidCode  = errors.New("invalid_code")
	ErrRoomNotFound = errors.New("room_not_found")

	// ErrInviteCodeExhausted means code generation kept colliding with
	// existing rooms; surfaced as a persistence fault.
	ErrInviteCodeExhausted = errors.New("invite_code_exhausted")
)
