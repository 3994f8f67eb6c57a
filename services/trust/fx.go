package trust

import (
	"go.uber.org/fx"
)

var Module = fx.Module("trust.service",
	fx.Provide(NewService),
)
