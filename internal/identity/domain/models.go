// Package domain models the identity collaborator's output. Authentication
// happens upstream; this service only keeps a snapshot of each caller's
// profile for display.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the fixed shape of an authenticated caller.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text" json:"email,omitempty"`
	AvatarURL string       `gorm:"type:text;column:avatar_url" json:"avatar_url,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Profile is what the identity gateway asserts about the caller.
type Profile struct {
	ID        snowflake.ID
	Name      string
	Email     string
	AvatarURL string
}
