package flyer

import (
	"github.com/smallbiznis/flyerpoint/internal/flyer/repository"
	"github.com/smallbiznis/flyerpoint/internal/flyer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("flyer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
