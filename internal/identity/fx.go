package identity

import (
	"github.com/smallbiznis/rondo/internal/identity/repository"
	"github.com/smallbiznis/rondo/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
