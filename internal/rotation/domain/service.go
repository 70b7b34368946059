// Package domain defines the turn rotation engine's contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/pkg/db/pagination"
)

type Service interface {
	// Advance confirms the current payer's turn: appends one history entry
	// attributed to them and hands the token to their circular successor.
	// A room with no members or no current payer is left untouched.
	Advance(ctx context.Context, actorID snowflake.ID, roomID string) (*roomdomain.RoomView, error)
	ListTurns(ctx context.Context, roomID string, page pagination.Pagination) (*TurnPage, error)
}

type TurnPage struct {
	Turns    []roomdomain.TurnView `json:"data"`
	PageInfo pagination.PageInfo   `json:"page_info"`
}

var (
	// ErrNotConfirmer rejects an advance by anyone other than the member
	// next in rotation after the current payer.
	ErrNotConfirmer = errors.New("not_confirmer")

	// ErrInvalidPageToken rejects a history cursor the server did not issue.
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
