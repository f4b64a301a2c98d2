package query

import "go.uber.org/fx"

// Module provides the query domain
var Module = fx.Module("query",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
