package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrUserNotFound = errors.New("user_not_found")

type Repository interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetByIDs(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]User, error)
}
