package treasuryservice

import (
	"log/slog"

	httpadapter "demesne/contexts/realm-economy/treasury-service/adapters/http"
	"demesne/contexts/realm-economy/treasury-service/adapters/memory"
	application "demesne/contexts/realm-economy/treasury-service/application"
	"demesne/contexts/realm-economy/treasury-service/application/commands"
	"demesne/contexts/realm-economy/treasury-service/application/queries"
	"demesne/contexts/realm-economy/treasury-service/application/workers"
	"demesne/contexts/realm-economy/treasury-service/domain/entities"
	"demesne/contexts/realm-economy/treasury-service/ports"
)

type Module struct {
	Handler         httpadapter.Handler
	DistributionJob workers.DistributionJob
	OutboxRelay     workers.OutboxRelay
	Store           *memory.Store
}

type Dependencies struct {
	Repository  ports.Repository
	Subjects    ports.SubjectSource
	Eligibility ports.EligibilityEvaluator
	Merit       ports.MeritScorer
	Pool        ports.RewardPoolSource
	Locker      ports.SettlementLocker
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Outbox      ports.OutboxWriter
	OutboxRepo  ports.OutboxRepository
	Publisher   ports.EventPublisher
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Repository:  deps.Repository,
		Subjects:    deps.Subjects,
		Eligibility: deps.Eligibility,
		Merit:       deps.Merit,
		Pool:        deps.Pool,
		Locker:      deps.Locker,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Outbox:      deps.Outbox,
		Logger:      deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Repository:  deps.Repository,
		Subjects:    deps.Subjects,
		Eligibility: deps.Eligibility,
		Merit:       deps.Merit,
		Pool:        deps.Pool,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		DistributionJob: workers.DistributionJob{
			Commands: commandUseCase,
			Logger:   deps.Logger,
		},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Settlement, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Repository: store,
		Subjects:   store,
		Eligibility: application.StandardEligibility{
			ReputationFloor: application.DefaultReputationFloor,
			CheckInWindow:   application.DefaultCheckInWindow,
		},
		Merit:      application.StandardMerit{},
		Pool:       store,
		Locker:     store,
		Clock:      store,
		IDGen:      store,
		Outbox:     store,
		OutboxRepo: store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
