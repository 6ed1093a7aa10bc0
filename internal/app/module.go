package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/storefront/internal/app/api/server"
	"github.com/fatflowers/storefront/internal/app/service/catalog"
	"github.com/fatflowers/storefront/internal/app/service/checkout"
	"github.com/fatflowers/storefront/internal/app/service/subscription"
	"github.com/fatflowers/storefront/internal/app/service/webhook"
	"github.com/fatflowers/storefront/internal/platform/cache"
	"github.com/fatflowers/storefront/internal/platform/db"
	"github.com/fatflowers/storefront/internal/platform/gateway"
	"github.com/fatflowers/storefront/pkg/config"
	"github.com/fatflowers/storefront/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cache.Module,
	gateway.Module,
	server.Module,
	catalog.Module,
	checkout.Module,
	subscription.Module,
	webhook.Module,
)
