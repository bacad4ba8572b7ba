package conversation

import (
	"github.com/lemur767/assistext-backend-sub001/internal/conversation/repository"
	"github.com/lemur767/assistext-backend-sub001/internal/conversation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversation",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
