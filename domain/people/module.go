package people

import "go.uber.org/fx"

// Module provides the people domain
var Module = fx.Module("people",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
