package message

import (
	"github.com/lemur767/assistext-backend-sub001/internal/message/repository"
	"github.com/lemur767/assistext-backend-sub001/internal/message/service"
	"go.uber.org/fx"
)

var Module = fx.Module("message",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
