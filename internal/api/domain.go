package api

import (
	"github.com/factorhq/factor/internal/autopost"
	"github.com/factorhq/factor/internal/classification"
	"github.com/factorhq/factor/internal/documents"
	"github.com/factorhq/factor/internal/engine"
	"github.com/factorhq/factor/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Gate      *classification.Gate
	AutoPost  autopost.Config
	Engine    *engine.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
		runtime.Engine.PilotPhase,
	)

	gate := classification.NewGate(
		classification.NewAgentClassifier(runtime.Agent),
		runtime.Engine.ClassificationThreshold,
		runtime.Logger,
	)

	autoPostCfg := autopost.Config{
		Enabled:   runtime.Engine.AutoPostEnabled,
		Threshold: runtime.Engine.AutoPostThreshold,
	}

	var poster autopost.Poster = autopost.Unconfigured{}
	if runtime.BC.Configured() {
		poster = autopost.NewBCClient(runtime.BC, runtime.Logger)
	}
	guarded := autopost.NewGuardedPoster(poster, runtime.PilotMode())

	runner := autopost.NewRunner(
		docsSystem,
		guarded,
		autopost.NewSimulator(),
		autoPostCfg,
		runtime.PilotMode(),
		runtime.Logger,
	)

	retry := workflow.NewRetryPolicy(
		map[string]int{
			workflow.StageBCValidation: runtime.Engine.MaxValidationRetries,
			workflow.StageExtraction:   runtime.Engine.MaxExtractionRetries,
			workflow.StageVendorMatch:  runtime.Engine.MaxVendorRetries,
		},
		runtime.Engine.LocationCodes,
	)

	engineRuntime := &engine.Runtime{
		Documents: docsSystem,
		Gate:      gate,
		Runner:    runner,
		Retry:     retry,
		Storage:   runtime.Storage,
		CRM:       engine.NoContext{},
		Logger:    runtime.Logger,
	}

	return &Domain{
		Documents: docsSystem,
		Gate:      gate,
		AutoPost:  autoPostCfg,
		Engine:    engineRuntime,
	}
}
