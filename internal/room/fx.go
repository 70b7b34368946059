package room

import (
	"github.com/smallbiznis/rondo/internal/room/repository"
	"github.com/smallbiznis/rondo/internal/room/service"
	"go.uber.org/fx"
)

var Module = fx.Module("room.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
