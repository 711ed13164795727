package providers

import (
	"github.com/samber/do/v2"

	"github.com/sparkapp/spark-server/internal/auth"
	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/logger"
	"github.com/sparkapp/spark-server/internal/service"
)

// ProvideAuthService provides the registration and login service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokens, log.Logger), nil
}

// ProvideResourceService provides the book, highlight and spark service.
func ProvideResourceService(i do.Injector) (*service.ResourceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewResourceService(storeHandle.Store, indexHandle.Index, log.Logger), nil
}

// ProvideCategoryService provides the category service.
func ProvideCategoryService(i do.Injector) (*service.CategoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCategoryService(storeHandle.Store, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// ProvideAutomationService provides the automation engine.
func ProvideAutomationService(i do.Injector) (*service.AutomationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAutomationService(storeHandle.Store, cfg.Automation, log.Logger), nil
}
