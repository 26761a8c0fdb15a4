package api

import (
	"net/http"

	"github.com/factorhq/factor/internal/config"
	"github.com/factorhq/factor/internal/engine"
	"github.com/factorhq/factor/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		engine.NewHandler(domain.Engine, domain.AutoPost).Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
