package hierarchy

import (
	"go.uber.org/fx"
)

// Module provides the hierarchy domain
var Module = fx.Module("hierarchy",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
