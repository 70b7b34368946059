package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rondo/internal/clock"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	identityrepository "github.com/smallbiznis/rondo/internal/identity/repository"
	identityservice "github.com/smallbiznis/rondo/internal/identity/service"
	"github.com/smallbiznis/rondo/internal/room/domain"
	"github.com/smallbiznis/rondo/internal/room/invitecode"
	"github.com/smallbiznis/rondo/internal/room/repository"
	dbpkg "github.com/smallbiznis/rondo/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	repo  domain.Repository
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&domain.Room{},
		&domain.Member{},
		&domain.Turn{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	userRepo := identityrepository.NewRepository(conn)
	roomRepo := repository.NewRepository(conn)

	return &fixture{
		db:    conn,
		svc:   NewService(conn, roomRepo, userRepo, node, clk, zap.NewNop()),
		repo:  roomRepo,
		clock: clk,
		node:  node,
	}
}

func (f *fixture) user(t *testing.T, name string) snowflake.ID {
	t.Helper()

	users := identityservice.NewService(identityrepository.NewRepository(f.db), f.clock)
	u, err := users.Ensure(context.Background(), identitydomain.Profile{
		ID:   f.node.Generate(),
		Name: name,
	})
	require.NoError(t, err)
	return u.ID
}

func TestCreateRoomSeedsRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")

	view, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Trip to Lisbon"})
	require.NoError(t, err)

	require.Len(t, view.Members, 1)
	require.Equal(t, 0, view.Members[0].RotationOrder)
	require.Equal(t, ana.String(), view.Members[0].UserID)
	require.Equal(t, "Ana", view.Members[0].Name)

	require.NotNil(t, view.CurrentPayer)
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	// A lone member is their own confirmer.
	require.NotNil(t, view.NextConfirmer)
	require.Equal(t, ana.String(), view.NextConfirmer.UserID)

	require.Len(t, view.InviteCode, invitecode.Length)
	require.Empty(t, view.Turns)
	require.Equal(t, "trip-to-lisbon", view.Slug)
}

func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")

	_, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, 0, domain.CreateRoomRequest{Name: "Dinner Club"})
	require.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestJoinAppendsToRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")
	carla := f.user(t, "Carla")

	created, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)

	view, err := f.svc.Join(ctx, bruno, created.InviteCode)
	require.NoError(t, err)
	require.Len(t, view.Members, 2)

	view, err = f.svc.Join(ctx, carla, created.InviteCode)
	require.NoError(t, err)
	require.Len(t, view.Members, 3)

	for i, m := range view.Members {
		require.Equal(t, i, m.RotationOrder)
	}

	// Joins never move the token.
	require.NotNil(t, view.CurrentPayer)
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	require.Equal(t, bruno.String(), view.NextConfirmer.UserID)
}

func TestJoinIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")

	created, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)

	first, err := f.svc.Join(ctx, bruno, created.InviteCode)
	require.NoError(t, err)

	second, err := f.svc.Join(ctx, bruno, created.InviteCode)
	require.NoError(t, err)
	require.Len(t, second.Members, len(first.Members))

	// The creator re-joining their own room is equally harmless.
	again, err := f.svc.Join(ctx, ana, created.InviteCode)
	require.NoError(t, err)
	require.Len(t, again.Members, 2)
}

func TestJoinByRoomID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")

	created, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)

	view, err := f.svc.Join(ctx, bruno, created.ID)
	require.NoError(t, err)
	require.Len(t, view.Members, 2)
}

func TestJoinNormalizesInviteCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")

	created, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)

	view, err := f.svc.Join(ctx, bruno, "  "+created.InviteCode+" ")
	require.NoError(t, err)
	require.Len(t, view.Members, 2)
}

func TestJoinUnknownCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")

	_, err := f.svc.Join(ctx, ana, "ZZZZZZ")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = f.svc.Join(ctx, ana, "")
	require.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestGetByIDUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetByID(context.Background(), "not-a-room")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = f.svc.GetByID(context.Background(), f.node.Generate().String())
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")

	_, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.svc.Create(ctx, ana, domain.CreateRoomRequest{Name: "Trip"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Create(ctx, bruno, domain.CreateRoomRequest{Name: "Rent"})
	require.NoError(t, err)

	rooms, err := f.svc.ListByUser(ctx, ana)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	// Most recently touched room first.
	require.Equal(t, second.ID, rooms[0].ID)

	rooms, err = f.svc.ListByUser(ctx, bruno)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}
