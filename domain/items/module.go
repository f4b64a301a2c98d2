package items

import (
	"go.uber.org/fx"
)

// Module provides the base-record repositories
var Module = fx.Module("items",
	fx.Provide(NewRepository),
)
