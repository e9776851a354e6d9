package reviewqueue

import (
	"log/slog"

	httpadapter "triage/contexts/moderation-safety/review-queue/adapters/http"
	"triage/contexts/moderation-safety/review-queue/adapters/memory"
	"triage/contexts/moderation-safety/review-queue/application"
	"triage/contexts/moderation-safety/review-queue/application/handlers"
	"triage/contexts/moderation-safety/review-queue/application/queries"
	"triage/contexts/moderation-safety/review-queue/application/workers"
	"triage/contexts/moderation-safety/review-queue/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	OutboxRelay workers.OutboxRelay
	StatsWorker workers.StatsTruncationConsumer
	Store       *memory.Store
}

type Dependencies struct {
	Reviewables       ports.ReviewableRepository
	Scores            ports.ScoreRepository
	Targets           ports.TargetStore
	Stats             ports.UserStatsStore
	Outbox            ports.EventOutbox
	OutboxRepo        ports.OutboxRepository
	UnitOfWork        ports.UnitOfWork
	Publisher         ports.EventPublisher
	Subscriber        ports.EventSubscriber
	Clock             ports.Clock
	IDGen             ports.IDGenerator
	DefaultMinScore   float64
	TruncateThreshold int
	TruncateKeep      int
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	scoring := application.Scoring{
		Reviewables:       deps.Reviewables,
		Scores:            deps.Scores,
		Stats:             deps.Stats,
		Outbox:            deps.Outbox,
		IDGen:             deps.IDGen,
		Clock:             deps.Clock,
		TruncateThreshold: deps.TruncateThreshold,
		TruncateKeep:      deps.TruncateKeep,
		Logger:            deps.Logger,
	}
	catalog := application.NewCatalog(
		handlers.FlaggedPostHandler{
			Targets: deps.Targets,
			Scores:  deps.Scores,
			Stats:   scoring,
			Clock:   deps.Clock,
		},
		handlers.QueuedPostHandler{
			Targets: deps.Targets,
			Scores:  deps.Scores,
			Stats:   scoring,
			Clock:   deps.Clock,
		},
		handlers.UserHandler{
			Targets: deps.Targets,
			Scores:  deps.Scores,
			Stats:   scoring,
			Clock:   deps.Clock,
		},
	)
	guardian := application.StandardGuardian{}

	intake := application.Intake{
		Reviewables: deps.Reviewables,
		Scores:      deps.Scores,
		Targets:     deps.Targets,
		Catalog:     catalog,
		Scoring:     scoring,
		UnitOfWork:  deps.UnitOfWork,
		Outbox:      deps.Outbox,
		IDGen:       deps.IDGen,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	engine := application.TransitionEngine{
		Reviewables: deps.Reviewables,
		Targets:     deps.Targets,
		Guardian:    guardian,
		Catalog:     catalog,
		Scoring:     scoring,
		UnitOfWork:  deps.UnitOfWork,
		Outbox:      deps.Outbox,
		IDGen:       deps.IDGen,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	editor := application.Editor{
		Reviewables: deps.Reviewables,
		Guardian:    guardian,
		Catalog:     catalog,
		UnitOfWork:  deps.UnitOfWork,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Intake: intake,
			Engine: engine,
			Editor: editor,
			ListQueue: queries.ListUseCase{
				Reviewables:     deps.Reviewables,
				Catalog:         catalog,
				DefaultMinScore: deps.DefaultMinScore,
				Logger:          deps.Logger,
			},
			GetOne: queries.GetUseCase{
				Reviewables: deps.Reviewables,
				Targets:     deps.Targets,
				Guardian:    guardian,
				Catalog:     catalog,
			},
			Logger: deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		StatsWorker: workers.StatsTruncationConsumer{
			Subscriber:  deps.Subscriber,
			Stats:       deps.Stats,
			DefaultKeep: deps.TruncateKeep,
			Logger:      deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Reviewables: store,
		Scores:      store,
		Targets:     store,
		Stats:       store,
		Outbox:      store,
		OutboxRepo:  store,
		UnitOfWork:  store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
