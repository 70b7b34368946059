package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id snowflake.ID) (*Room, error)
	// GetRoomForUpdate locks the room row for the duration of the enclosing
	// transaction so concurrent joins and advances serialize.
	GetRoomForUpdate(ctx context.Context, id snowflake.ID) (*Room, error)
	FindRoomByInviteCode(ctx context.Context, code string) (*Room, error)
	SetCurrentPayer(ctx context.Context, roomID snowflake.ID, userID snowflake.ID, at time.Time) error

	AddMember(ctx context.Context, member Member) error
	ListMembers(ctx context.Context, roomID snowflake.ID) ([]Member, error)
	CountMembers(ctx context.Context, roomID snowflake.ID) (int64, error)
	IsMember(ctx context.Context, roomID, userID snowflake.ID) (bool, error)

	AppendTurn(ctx context.Context, turn Turn) error
	ListTurns(ctx context.Context, roomID snowflake.ID) ([]Turn, error)
	ListTurnsBefore(ctx context.Context, roomID snowflake.ID, before time.Time, beforeID snowflake.ID, limit int) ([]Turn, error)
	CountTurns(ctx context.Context, roomID snowflake.ID) (int64, error)

	ListRoomsByUser(ctx context.Context, userID snowflake.ID) ([]Room, error)
}
