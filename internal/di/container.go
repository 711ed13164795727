// Package di provides dependency injection configuration for the Spark
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/sparkapp/spark-server/internal/auth"
	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/di/providers"
	"github.com/sparkapp/spark-server/internal/logger"
	"github.com/sparkapp/spark-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Auth
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideResourceService)
	do.Provide(injector, providers.ProvideCategoryService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideAutomationService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server. This
// triggers lazy initialization in dependency order.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ResourceService](injector)
	_ = do.MustInvoke[*service.CategoryService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.AutomationService](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
