package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rondo/internal/clock"
	identitydomain "github.com/smallbiznis/rondo/internal/identity/domain"
	identityrepository "github.com/smallbiznis/rondo/internal/identity/repository"
	identityservice "github.com/smallbiznis/rondo/internal/identity/service"
	"github.com/smallbiznis/rondo/internal/rotation/domain"
	roomdomain "github.com/smallbiznis/rondo/internal/room/domain"
	roomrepository "github.com/smallbiznis/rondo/internal/room/repository"
	roomservice "github.com/smallbiznis/rondo/internal/room/service"
	dbpkg "github.com/smallbiznis/rondo/pkg/db"
	"github.com/smallbiznis/rondo/pkg/db/pagination"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	rooms roomdomain.Service
	svc   domain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&roomdomain.Room{},
		&roomdomain.Member{},
		&roomdomain.Turn{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	userRepo := identityrepository.NewRepository(conn)
	roomRepo := roomrepository.NewRepository(conn)
	roomSvc := roomservice.NewService(conn, roomRepo, userRepo, node, clk, zap.NewNop())

	return &fixture{
		db:    conn,
		rooms: roomSvc,
		svc:   NewService(conn, roomRepo, roomSvc, node, clk, zap.NewNop(), nil),
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

// trioRoom builds the canonical three person room: Ana creates, Bruno and
// Carla join, so rotation order is Ana, Bruno, Carla and Ana holds the token.
func trioRoom(t *testing.T, f *fixture) (roomID string, ana, bruno, carla snowflake.ID) {
	t.Helper()
	ctx := context.Background()

	ana = f.user(t, "Ana")
	bruno = f.user(t, "Bruno")
	carla = f.user(t, "Carla")

	view, err := f.rooms.Create(ctx, ana, roomdomain.CreateRoomRequest{Name: "Trip"})
	require.NoError(t, err)
	_, err = f.rooms.Join(ctx, bruno, view.InviteCode)
	require.NoError(t, err)
	_, err = f.rooms.Join(ctx, carla, view.InviteCode)
	require.NoError(t, err)

	return view.ID, ana, bruno, carla
}

func TestAdvanceRotatesAndRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID, ana, bruno, carla := trioRoom(t, f)

	f.clock.Advance(time.Minute)
	view, err := f.svc.Advance(ctx, bruno, roomID)
	require.NoError(t, err)
	require.Equal(t, bruno.String(), view.CurrentPayer.UserID)
	require.Equal(t, carla.String(), view.NextConfirmer.UserID)
	require.Len(t, view.Turns, 1)
	require.Equal(t, ana.String(), view.Turns[0].UserID)

	f.clock.Advance(time.Minute)
	view, err = f.svc.Advance(ctx, carla, roomID)
	require.NoError(t, err)
	require.Equal(t, carla.String(), view.CurrentPayer.UserID)
	require.Len(t, view.Turns, 2)

	f.clock.Advance(time.Minute)
	view, err = f.svc.Advance(ctx, ana, roomID)
	require.NoError(t, err)

	// Wrapped back to the creator, with history newest first.
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	require.Equal(t, bruno.String(), view.NextConfirmer.UserID)
	require.Len(t, view.Turns, 3)
	require.Equal(t, carla.String(), view.Turns[0].UserID)
	require.Equal(t, bruno.String(), view.Turns[1].UserID)
	require.Equal(t, ana.String(), view.Turns[2].UserID)
}

func TestAdvanceRejectsWrongConfirmer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID, ana, _, carla := trioRoom(t, f)

	// Bruno is next; neither the payer nor Carla may confirm.
	_, err := f.svc.Advance(ctx, ana, roomID)
	require.ErrorIs(t, err, domain.ErrNotConfirmer)
	_, err = f.svc.Advance(ctx, carla, roomID)
	require.ErrorIs(t, err, domain.ErrNotConfirmer)

	view, err := f.rooms.GetByID(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	require.Empty(t, view.Turns)
}

func TestAdvanceSingleMemberSelfConfirms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")

	created, err := f.rooms.Create(ctx, ana, roomdomain.CreateRoomRequest{Name: "Solo"})
	require.NoError(t, err)

	view, err := f.svc.Advance(ctx, ana, created.ID)
	require.NoError(t, err)
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	require.Len(t, view.Turns, 1)
	require.Equal(t, ana.String(), view.Turns[0].UserID)
}

func TestAdvanceRepairsDanglingPointer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID, ana, bruno, _ := trioRoom(t, f)

	// Point the token at a user who is not in the rotation.
	ghost := f.node.Generate()
	require.NoError(t, f.db.Exec(
		`UPDATE rooms SET current_payer_id = ? WHERE id = ?`, ghost, roomID,
	).Error)

	view, err := f.svc.Advance(ctx, bruno, roomID)
	require.NoError(t, err)

	// Repair resets to the first member and attributes no turn.
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
	require.Empty(t, view.Turns)
}

func TestAdvanceNoopWithoutPayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID, _, bruno, _ := trioRoom(t, f)

	require.NoError(t, f.db.Exec(
		`UPDATE rooms SET current_payer_id = NULL WHERE id = ?`, roomID,
	).Error)

	view, err := f.svc.Advance(ctx, bruno, roomID)
	require.NoError(t, err)
	require.Nil(t, view.CurrentPayer)
	require.Empty(t, view.Turns)
}

func TestAdvanceUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Advance(context.Background(), f.node.Generate(), "garbage")
	require.ErrorIs(t, err, roomdomain.ErrRoomNotFound)

	_, err = f.svc.Advance(context.Background(), f.node.Generate(), f.node.Generate().String())
	require.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}

func TestConcurrentAdvancesSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID, ana, bruno, carla := trioRoom(t, f)

	// Each member keeps retrying until their confirmation lands. Exactly one
	// actor is eligible at a time, so the three successes must serialize
	// into three distinct rotation steps.
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, actor := range []snowflake.ID{ana, bruno, carla} {
		wg.Add(1)
		go func(actor snowflake.ID) {
			defer wg.Done()
			for attempt := 0; attempt < 1000; attempt++ {
				_, err := f.svc.Advance(ctx, actor, roomID)
				if err == nil {
					return
				}
				if errors.Is(err, domain.ErrNotConfirmer) {
					continue
				}
				errs <- err
				return
			}
			errs <- errors.New("advance never succeeded")
		}(actor)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	view, err := f.rooms.GetByID(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, view.Turns, 3)
	// Three steps in a three person room lands the token back on the creator.
	require.Equal(t, ana.String(), view.CurrentPayer.UserID)
}

func TestListTurnsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")
	bruno := f.user(t, "Bruno")

	created, err := f.rooms.Create(ctx, ana, roomdomain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)
	_, err = f.rooms.Join(ctx, bruno, created.InviteCode)
	require.NoError(t, err)

	actors := []snowflake.ID{bruno, ana, bruno, ana, bruno}
	for _, actor := range actors {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Advance(ctx, actor, created.ID)
		require.NoError(t, err)
	}

	page, err := f.svc.ListTurns(ctx, created.ID, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Turns, 2)
	require.True(t, page.PageInfo.HasMore)
	require.NotEmpty(t, page.PageInfo.NextPageToken)
	// Newest entry is the last confirmed turn, attributed to Ana as the
	// outgoing payer.
	require.Equal(t, ana.String(), page.Turns[0].UserID)

	var collected []string
	for _, turn := range page.Turns {
		collected = append(collected, turn.ID)
	}
	token := page.PageInfo.NextPageToken
	for token != "" {
		page, err = f.svc.ListTurns(ctx, created.ID, pagination.Pagination{PageSize: 2, PageToken: token})
		require.NoError(t, err)
		for _, turn := range page.Turns {
			collected = append(collected, turn.ID)
		}
		token = page.PageInfo.NextPageToken
	}
	require.Len(t, collected, 5)

	seen := make(map[string]bool, len(collected))
	for _, id := range collected {
		require.False(t, seen[id], "turn %s returned twice", id)
		seen[id] = true
	}
}

func TestListTurnsRejectsBadToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.user(t, "Ana")

	created, err := f.rooms.Create(ctx, ana, roomdomain.CreateRoomRequest{Name: "Lunch"})
	require.NoError(t, err)

	_, err = f.svc.ListTurns(ctx, created.ID, pagination.Pagination{PageToken: "!!!"})
	require.ErrorIs(t, err, domain.ErrInvalidPageToken)

	_, err = f.svc.ListTurns(ctx, "garbage", pagination.Pagination{})
	require.ErrorIs(t, err, roomdomain.ErrRoomNotFound)
}
