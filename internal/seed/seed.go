// Package seed provisions fixture data for local development installs.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Stable ids so local clients can hardcode X-User-Id headers.
var demoUsers = []identitydomain.User{
	{ID: snowflake.ID(1001), Name: "Ana", Email: "ana@example.com"},
	{ID: snowflake.ID(1002), Name: "Bruno", Email: "bruno@example.com"},
	{ID: snowflake.ID(1003), Name: "Carla", Email: "carla@example.com"},
}

// EnsureDemoUsers inserts the demo accounts if they are missing. Existing
// rows are left untouched so renames made through the API survive restarts.
func EnsureDemoUsers(conn *gorm.DB) error {
	now := time.Now().UTC()
	for _, user := range demoUsers {
		user.CreatedAt = now
		user.UpdatedAt = now
		err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error
		if err != nil {
			return err
		}
	}
	return nil
}
