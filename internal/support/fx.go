package support

import (
	"github.com/smallbiznis/parcella/internal/support/repository"
	"github.com/smallbiznis/parcella/internal/support/service"
	"go.uber.org/fx"
)

var Module = fx.Module("support.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
