// Package domain contains persistence models for the room service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Room is a group of people rotating a single current-payer token.
type Room struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name           string            `gorm:"type:text;not null" json:"name"`
	Slug           string            `gorm:"type:text;not null" json:"slug"`
	InviteCode     string            `gorm:"type:varchar(16);not null;uniqueIndex:ux_rooms_invite_code" json:"invite_code"`
	CurrentPayerID *snowflake.ID     `gorm:"column:current_payer_id" json:"current_payer_id"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }

// Member is a person's membership in a room. Rotation orders within a room
// are gapless and zero-based in join order; membership is append-only.
type Member struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_room_members_user,priority:1;uniqueIndex:ux_room_members_order,priority:1" json:"room_id"`
	UserID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_room_members_user,priority:2" json:"user_id"`
	RotationOrder int          `gorm:"column:rotation_order;not null;uniqueIndex:ux_room_members_order,priority:2" json:"rotation_order"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "room_members" }

// Turn records that a member's payment turn was completed. Rows are
// append-only and never mutated.
type Turn struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	RoomID    snowflake.ID `gorm:"not null;index:ix_turns_room_created,priority:1" json:"room_id"`
	MemberID  snowflake.ID `gorm:"not null" json:"member_id"`
	UserID    snowflake.ID `gorm:"not null" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_turns_room_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (Turn) TableName() string { return "turns" }
