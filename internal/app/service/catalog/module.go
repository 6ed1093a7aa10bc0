package catalog

import "go.uber.org/fx"

// Module exposes the catalog repository via Fx.
var Module = fx.Options(
	fx.Provide(NewRepository),
)
