package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rondo/internal/clock"
	"github.com/smallbiznis/rondo/internal/identity/domain"
)

type Service interface {
	// Ensure records or refreshes the caller's identity snapshot.
	Ensure(ctx context.Context, profile domain.Profile) (*domain.User, error)
	GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error)
}

type service struct {
	repo  domain.Repository
	clock clock.Clock
}

func NewService(repo domain.Repository, clk clock.Clock) Service {
	return &service{repo: repo, clock: clk}
}

func (s *service) Ensure(ctx context.Context, profile domain.Profile) (*domain.User, error) {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = "Unknown"
	}

	now := s.clock.Now()
	user := domain.User{
		ID:        profile.ID,
		Name:      name,
		Email:     strings.TrimSpace(profile.Email),
		AvatarURL: strings.TrimSpace(profile.AvatarURL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}
