package escrow

import (
	"go.uber.org/fx"
)

var Module = fx.Module("escrow.service",
	fx.Provide(NewService, NewHandler),
)

var Routes = fx.Module("escrow.routes",
	fx.Invoke(RegisterRoutes),
)

var TaskModule = fx.Module("task.escrow",
	fx.Provide(NewTask),
)
