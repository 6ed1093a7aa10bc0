package webhook

import "go.uber.org/fx"

// Module exposes the webhook ingress guard and dispatcher via Fx.
var Module = fx.Options(
	fx.Provide(NewDispatcher),
	fx.Provide(NewGuard),
)
