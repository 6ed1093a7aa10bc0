package gateway

import (
	"go.uber.org/fx"

	cfgpkg "github.com/fatflowers/storefront/pkg/config"
)

var Module = fx.Options(
	fx.Provide(func(cfg *cfgpkg.Config) *MetadataSigner {
		return NewMetadataSigner(cfg.Gateway.MetadataSecret)
	}),
	fx.Provide(fx.Annotate(NewHTTPClient, fx.As(new(SessionClient)))),
)
