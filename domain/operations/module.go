package operations

import "go.uber.org/fx"

// Module provides the operations domain
var Module = fx.Module("operations",
	fx.Provide(
		NewRepository,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
