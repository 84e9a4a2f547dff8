package budget

import (
	"github.com/smallbiznis/flyerpoint/internal/budget/repository"
	"github.com/smallbiznis/flyerpoint/internal/budget/service"
	"go.uber.org/fx"
)

var Module = fx.Module("budget.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
