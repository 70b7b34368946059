package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rondo/internal/clock"
	obsmetrics "github.com/smallbiznis/rondo/internal/observability/metrics"
	"github.com/smallbiznis/rondo/internal/rotation/domain"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	dbpkg "github.com/smallbiznis/rondo/pkg/db"
	"github.com/smallbiznis/rondo/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAdvanceAttempts = 3

type outcome int

const (
	outcomeAdvanced outcome = iota
	outcomeNoop
	outcomeRepaired
)

type service struct {
	db      *gorm.DB
	rooms   roomdomain.Repository
	view    roomdomain.Service
	genID   *snowflake.Node
	clock   clock.Clock
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func NewService(db *gorm.DB, rooms roomdomain.Repository, view roomdomain.Service, genID *snowflake.Node, clk clock.Clock, log *zap.Logger, m *obsmetrics.Metrics) domain.Service {
	return &service{
		db:      db,
		rooms:   rooms,
		view:    view,
		genID:   genID,
		clock:   clk,
		log:     log,
		metrics: m,
	}
}

func (s *service) Advance(ctx context.Context, actorID snowflake.ID, roomID string) (*roomdomain.RoomView, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(roomID))
	if err != nil {
		return nil, roomdomain.ErrRoomNotFound
	}

	var result outcome
	for attempt := 0; ; attempt++ {
		result, err = s.advanceOnce(ctx, actorID, id)
		if err == nil {
			break
		}
		if dbpkg.IsSerializationErr(err) && attempt+1 < maxAdvanceAttempts {
			s.log.Debug("advance conflicted, retrying",
				zap.String("room_id", id.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, err
	}

	switch result {
	case outcomeAdvanced:
		s.metrics.RecordTurnAdvanced(ctx)
	case outcomeRepaired:
		s.metrics.RecordPointerRepair(ctx)
	}

	return s.view.GetByID(ctx, id.String())
}

// advanceOnce runs one read-modify-write cycle as a single transaction so
// concurrent confirmations serialize into distinct rotation steps.
func (s *service) advanceOnce(ctx context.Context, actorID, roomID snowflake.ID) (outcome, error) {
	now := s.clock.Now()
	result := outcomeNoop

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.rooms.WithTx(tx)

		room, err := repo.GetRoomForUpdate(ctx, roomID)
		if err != nil {
			return err
		}

		members, err := repo.ListMembers(ctx, room.ID)
		if err != nil {
			return err
		}

		// A room that never got a payer, or somehow has no members, has
		// nothing to advance.
		if room.CurrentPayerID == nil || len(members) == 0 {
			result = outcomeNoop
			s.log.Info("nothing to advance",
				zap.String("room_id", room.ID.String()),
			)
			return nil
		}

		current := roomdomain.CurrentIndex(members, room.CurrentPayerID)
		if current < 0 {
			// The recorded payer is gone from the rotation. Reset the token
			// to the first member instead of failing; no turn is attributed
			// to anyone for this repair.
			result = outcomeRepaired
			s.log.Warn("current payer not in rotation, repairing",
				zap.String("room_id", room.ID.String()),
				zap.String("dangling_user_id", room.CurrentPayerID.String()),
				zap.String("repair", "reset_to_first"),
			)
			return repo.SetCurrentPayer(ctx, room.ID, members[0].UserID, now)
		}

		next := roomdomain.Successor(current, len(members))
		if members[next].UserID != actorID {
			return domain.ErrNotConfirmer
		}

		turn := roomdomain.Turn{
			ID:        s.genID.Generate(),
			RoomID:    room.ID,
			MemberID:  members[current].ID,
			UserID:    members[current].UserID,
			CreatedAt: now,
		}
		if err := repo.AppendTurn(ctx, turn); err != nil {
			return err
		}

		result = outcomeAdvanced
		return repo.SetCurrentPayer(ctx, room.ID, members[next].UserID, now)
	})
	if err != nil {
		return outcomeNoop, err
	}
	return result, nil
}

func (s *service) ListTurns(ctx context.Context, roomID string, page pagination.Pagination) (*domain.TurnPage, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(roomID))
	if err != nil {
		return nil, roomdomain.ErrRoomNotFound
	}
	if _, err := s.rooms.GetRoom(ctx, id); err != nil {
		return nil, err
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 25
	}
	if limit > 250 {
		limit = 250
	}

	var before time.Time
	var beforeID snowflake.ID
	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		before, err = time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		if beforeID, err = snowflake.ParseString(cursor.ID); err != nil {
			return nil, domain.ErrInvalidPageToken
		}
	}

	turns, err := s.rooms.ListTurnsBefore(ctx, id, before, beforeID, limit+1)
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.PageInfo{}
	if len(turns) > limit {
		turns = turns[:limit]
		last := turns[len(turns)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		pageInfo.HasMore = true
		pageInfo.NextPageToken = token
	}

	views := make([]roomdomain.TurnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, roomdomain.TurnView{
			ID:        t.ID.String(),
			MemberID:  t.MemberID.String(),
			UserID:    t.UserID.String(),
			CreatedAt: t.CreatedAt,
		})
	}

	return &domain.TurnPage{Turns: views, PageInfo: pageInfo}, nil
}
