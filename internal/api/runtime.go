package api

import (
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/config"
	"github.com/factorhq/factor/internal/infrastructure"
	"github.com/factorhq/factor/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Engine     config.EngineConfig
	Agent      gaconfig.AgentConfig
	BC         autopost.BCConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Engine:     cfg.Engine,
		Agent:      cfg.Agent,
		BC:         cfg.BC,
	}
}

// PilotMode returns the pilot switch sampled by guarded posters and the
// auto-post runner. The closure reads the runtime's flag on every call
// rather than a copy taken at composition, so flipping it takes effect on
// the next sample.
func (r *Runtime) PilotMode() func() bool {
	return func() bool { return r.Engine.PilotMode }
}
