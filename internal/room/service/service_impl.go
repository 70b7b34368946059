package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/rondo/internal/clock"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	"github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/internal/room/invitecode"
	dbpkg "github.com/smallbiznis/rondo/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invite codes are short, so collisions with existing rooms are possible.
// Creation regenerates the code on a uniqueness violation up to this bound.
const maxInviteCodeAttempts = 5

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	users identitydomain.Repository
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

func NewService(db *gorm.DB, repo domain.Repository, users identitydomain.Repository, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) domain.Service {
	return &service{
		db:    db,
		repo:  repo,
		users: users,
		genID: genID,
		clock: clk,
		log:   log,
	}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateRoomRequest) (*domain.RoomView, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	roomID := s.genID.Generate()

	var created *domain.Room
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := invitecode.New()
		if err != nil {
			return nil, err
		}

		room := domain.Room{
			ID:         roomID,
			Name:       name,
			Slug:       slug.Make(name),
			InviteCode: code,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.CreateRoom(ctx, room); err != nil {
				return err
			}

			member := domain.Member{
				ID:            s.genID.Generate(),
				RoomID:        roomID,
				UserID:        userID,
				RotationOrder: 0,
				CreatedAt:     now,
			}
			if err := repo.AddMember(ctx, member); err != nil {
				return err
			}

			return repo.SetCurrentPayer(ctx, roomID, userID, now)
		})
		if err == nil {
			room.CurrentPayerID = &userID
			created = &room
			break
		}
		if dbpkg.IsDuplicateKeyErr(err) {
			s.log.Debug("invite code collision, regenerating",
				zap.String("room_id", roomID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, domain.ErrInviteCodeExhausted
	}

	s.log.Info("room created",
		zap.String("room_id", created.ID.String()),
		zap.String("creator_id", userID.String()),
	)

	return s.compose(ctx, created)
}

func (s *service) Join(ctx context.Context, userID snowflake.ID, code string) (*domain.RoomView, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrInvalidCode
	}

	room, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Lock the room so the order we assign stays gapless under
		// concurrent joins.
		locked, err := repo.GetRoomForUpdate(ctx, room.ID)
		if err != nil {
			return err
		}

		joined, err := repo.IsMember(ctx, locked.ID, userID)
		if err != nil {
			return err
		}
		if joined {
			return nil
		}

		count, err := repo.CountMembers(ctx, locked.ID)
		if err != nil {
			return err
		}

		member := domain.Member{
			ID:            s.genID.Generate(),
			RoomID:        locked.ID,
			UserID:        userID,
			RotationOrder: int(count),
			CreatedAt:     now,
		}
		if err := repo.AddMember(ctx, member); err != nil {
			// A concurrent join by the same user is an idempotent success.
			if dbpkg.IsDuplicateKeyErr(err) {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, fresh)
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.RoomView, error) {
	roomID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrRoomNotFound
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, room)
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.RoomView, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	rooms, err := s.repo.ListRoomsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]domain.RoomView, 0, len(rooms))
	for i := range rooms {
		view, err := s.compose(ctx, &rooms[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// resolve finds a room by invite code, falling back to a raw room id so a
// share link can carry either.
func (s *service) resolve(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.repo.FindRoomByInviteCode(ctx, invitecode.Normalize(code))
	if err == nil {
		return room, nil
	}
	if err != domain.ErrRoomNotFound {
		return nil, err
	}

	roomID, parseErr := snowflake.ParseString(strings.TrimSpace(code))
	if parseErr != nil {
		return nil, domain.ErrRoomNotFound
	}
	return s.repo.GetRoom(ctx, roomID)
}

func (s *service) compose(ctx context.Context, room *domain.Room) (*domain.RoomView, error) {
	members, err := s.repo.ListMembers(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	turns, err := s.repo.ListTurns(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	return domain.ComposeView(room, members, users, turns), nil
}
