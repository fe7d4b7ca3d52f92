package match

import (
	"go.uber.org/fx"
)

var Module = fx.Module("match.service",
	fx.Provide(NewService, NewHandler),
)

var Routes = fx.Module("match.routes",
	fx.Invoke(RegisterRoutes),
)
