package notification

import (
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(NewService, NewHandler),
)

var Routes = fx.Module("notification.routes",
	fx.Invoke(RegisterRoutes),
)

var TaskModule = fx.Module("task.notification",
	fx.Provide(NewTask),
)
