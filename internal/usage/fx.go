package usage

import (
	"github.com/lemur767/assistext-backend-sub001/internal/usage/repository"
	"github.com/lemur767/assistext-backend-sub001/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
