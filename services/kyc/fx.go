package kyc

import (
	"go.uber.org/fx"
)

var Module = fx.Module("kyc.service",
	fx.Provide(NewService, NewHandler),
)

var Routes = fx.Module("kyc.routes",
	fx.Invoke(RegisterRoutes),
)

var TaskModule = fx.Module("task.kyc",
	fx.Provide(NewTask),
)
