package rotation

import (
	"github.com/smallbiznis/rondo/internal/rotation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rotation.service",
	fx.Provide(service.NewService),
)
