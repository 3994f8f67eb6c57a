package httpapi

import (
	"net/http"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/health"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/settlement"
	"datamarket-settlement/services/trust"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler),
)

type Handler struct {
	ledger     *ledger.Service
	trust      *trust.Service
	payout     *payout.Service
	settlement *settlement.Service
}

type HandlerParams struct {
	fx.In
	Config     *config.Config
	Health     health.HealthService
	Ledger     *ledger.Service
	Trust      *trust.Service
	Payout     *payout.Service
	Settlement *settlement.Service
}

// NewHandler builds the gin router exposing the settlement API.
func NewHandler(p HandlerParams) http.Handler {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{
		ledger:     p.Ledger,
		trust:      p.Trust,
		payout:     p.Payout,
		settlement: p.Settlement,
	}

	r := gin.New()
	r.Use(gin.Recovery(), Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	v1 := r.Group("/v1")
	{
		v1.GET("/users/:user_id/balance", h.GetBalance)
		v1.GET("/users/:user_id/rewards", h.ListRewards)
		v1.GET("/users/:user_id/payouts", h.ListPayouts)
		v1.GET("/users/:user_id/trust", h.GetUserTrust)
		v1.GET("/buyers/:buyer_id/trust", h.GetBuyerTrust)

		v1.POST("/rewards", h.RecordReward)

		v1.POST("/payouts", h.CreatePayout)
		v1.GET("/payouts/:payout_id", h.GetPayout)
		v1.POST("/payouts/:payout_id/mark-paid", h.MarkPayoutPaid)
		v1.POST("/payouts/:payout_id/mark-failed", h.MarkPayoutFailed)

		v1.POST("/settlement/run", h.RunSettlement)
	}

	return r
}
