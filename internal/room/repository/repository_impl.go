package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rondo/internal/room/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateRoom(ctx context.Context, room domain.Room) error {
	return r.db.WithContext(ctx).Create(&room).Error
}

func (r *repository) GetRoom(ctx context.Context, id snowflake.ID) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) GetRoomForUpdate(ctx context.Context, id snowflake.ID) (*domain.Room, error) {
	q := r.db.WithContext(ctx)
	// sqlite serializes writers on its own and rejects FOR UPDATE.
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var room domain.Room
	err := q.First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) FindRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, "invite_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) SetCurrentPayer(ctx context.Context, roomID snowflake.ID, userID snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE rooms SET current_payer_id = ?, updated_at = ? WHERE id = ?`,
		userID,
		at,
		roomID,
	).Error
}

func (r *repository) AddMember(ctx context.Context, member domain.Member) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repository) ListMembers(ctx context.Context, roomID snowflake.ID) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("rotation_order ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) CountMembers(ctx context.Context, roomID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *repository) IsMember(ctx context.Context, roomID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) AppendTurn(ctx context.Context, turn domain.Turn) error {
	return r.db.WithContext(ctx).Create(&turn).Error
}

func (r *repository) ListTurns(ctx context.Context, roomID snowflake.ID) ([]domain.Turn, error) {
	var turns []domain.Turn
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *repository) ListTurnsBefore(ctx context.Context, roomID snowflake.ID, before time.Time, beforeID snowflake.ID, limit int) ([]domain.Turn, error) {
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if !before.IsZero() {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", before, before, beforeID)
	}

	var turns []domain.Turn
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&turns).Error
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *repository) CountTurns(ctx context.Context, roomID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Turn{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListRoomsByUser(ctx context.Context, userID snowflake.ID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Raw(
		`SELECT r.*
		 FROM rooms r
		 JOIN room_members m ON m.room_id = r.id
		 WHERE m.user_id = ?
		 ORDER BY r.updated_at DESC`,
		userID,
	).Scan(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
