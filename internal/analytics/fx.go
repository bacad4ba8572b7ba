package analytics

import (
	"github.com/lemur767/assistext-backend-sub001/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics",
	fx.Provide(service.New),
)
