package subjectroster

import (
	"log/slog"

	httpadapter "demesne/contexts/realm-community/subject-roster/adapters/http"
	"demesne/contexts/realm-community/subject-roster/adapters/memory"
	"demesne/contexts/realm-community/subject-roster/application"
	"demesne/contexts/realm-community/subject-roster/domain/entities"
	"demesne/contexts/realm-community/subject-roster/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Service: application.Service{
				Repo:   deps.Repository,
				Clock:  deps.Clock,
				Logger: deps.Logger,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Subject, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Repository: store,
		Clock:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
