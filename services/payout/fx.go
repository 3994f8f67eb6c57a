package payout

import (
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(NewService),
)
