package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/sparkapp/spark-server/internal/api"
	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/logger"
	"github.com/sparkapp/spark-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts it listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		Resource:   do.MustInvoke[*service.ResourceService](i),
		Category:   do.MustInvoke[*service.CategoryService](i),
		Tag:        do.MustInvoke[*service.TagService](i),
		Automation: do.MustInvoke[*service.AutomationService](i),
	}

	handler := api.NewServer(services, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
