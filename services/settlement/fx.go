package settlement

import (
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(NewService),
)

var SchedulerModule = fx.Module("settlement.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)
