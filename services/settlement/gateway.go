package settlement

import (
	"context"

	"datamarket-settlement/services/payout"

	"go.uber.org/zap"
)

// Gateway moves money for a settled payout. Implementations must be safe to
// retry: settlement re-checks the payout status before calling Disburse, but
// a crash between disbursal and the status update replays the call.
type Gateway interface {
	Disburse(ctx context.Context, request *payout.PayoutRequest) error
}

// LogGateway records the disbursal and does nothing else. It stands in until
// a real payment provider is integrated.
type LogGateway struct{}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) Disburse(ctx context.Context, request *payout.PayoutRequest) error {
	zap.L().Info("disbursing payout",
		zap.String("payout_id", request.ID),
		zap.String("code", request.Code),
		zap.String("user_id", request.UserID),
		zap.Int64("amount", request.Amount),
	)
	return nil
}
