package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db/option"
	"datamarket-settlement/pkg/repository"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/trust"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrPayoutProcessing marks a run that could not start at all, e.g. the
// pending queue could not be read. Per-item failures never surface here; the
// item is counted and the run continues.
var ErrPayoutProcessing = errors.New("payout processing failed")

// TrustScorer supplies the earner's trust score for the eligibility gate.
type TrustScorer interface {
	UserScore(ctx context.Context, userID string) float64
}

// AutoProcessSummary is the per-run accounting. Every pending payout lands
// in exactly one outcome bucket; skipped payouts stay pending for the next
// run or manual review.
type AutoProcessSummary struct {
	TotalPending      int `json:"total_pending"`
	Processed         int `json:"processed"`
	MarkedPaid        int `json:"marked_paid"`
	SkippedLowTrust   int `json:"skipped_low_trust"`
	SkippedHighAmount int `json:"skipped_high_amount"`
	SkippedOtherError int `json:"skipped_other_error"`
}

type Service struct {
	db     *gorm.DB
	policy config.PayoutPolicy

	scorer  TrustScorer
	gateway Gateway
	payouts repository.Repository[payout.PayoutRequest]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Policy  config.PayoutPolicy
	Trust   *trust.Service
	Gateway Gateway `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	gateway := p.Gateway
	if gateway == nil {
		gateway = NewLogGateway()
	}

	return &Service{
		db:     p.DB,
		policy: p.Policy,

		scorer:  p.Trust,
		gateway: gateway,
		payouts: repository.ProvideStore[payout.PayoutRequest](p.DB),
	}
}

// RunAutoSettlement walks the pending payout queue once and settles every
// request that passes the trust and amount gates. Items are independent: a
// failure on one is recorded and the walk continues.
func (s *Service) RunAutoSettlement(ctx context.Context) (*AutoProcessSummary, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	started := time.Now()

	pending, err := s.payouts.Find(ctx,
		&payout.PayoutRequest{Status: payout.StatusPending},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		zap.L().Error("failed to load pending payouts", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPayoutProcessing, err)
	}

	summary := &AutoProcessSummary{TotalPending: len(pending)}
	for _, request := range pending {
		s.processOne(ctx, request, summary)
	}

	zap.L().Info("auto settlement run completed",
		zap.Int("total_pending", summary.TotalPending),
		zap.Int("processed", summary.Processed),
		zap.Int("marked_paid", summary.MarkedPaid),
		zap.Int("skipped_low_trust", summary.SkippedLowTrust),
		zap.Int("skipped_high_amount", summary.SkippedHighAmount),
		zap.Int("skipped_other_error", summary.SkippedOtherError),
		zap.Duration("elapsed", time.Since(started)),
	)

	return summary, nil
}

func (s *Service) processOne(ctx context.Context, request *payout.PayoutRequest, summary *AutoProcessSummary) {
	opts := []zap.Field{
		zap.String("payout_id", request.ID),
		zap.String("user_id", request.UserID),
		zap.Int64("amount", request.Amount),
	}

	defer func() {
		summary.Processed++
		if r := recover(); r != nil {
			summary.SkippedOtherError++
			zap.L().With(opts...).Error("panic while settling payout", zap.Any("panic", r))
		}
	}()

	score := s.scorer.UserScore(ctx, request.UserID)
	if score < s.policy.AutoMinTrustScore {
		summary.SkippedLowTrust++
		zap.L().With(opts...).Info("skipping payout, trust score below auto threshold",
			zap.Float64("score", score),
			zap.Float64("min_score", s.policy.AutoMinTrustScore),
		)
		return
	}

	if request.Amount > s.policy.AutoMaxAmount {
		summary.SkippedHighAmount++
		zap.L().With(opts...).Info("skipping payout, amount above auto limit",
			zap.Int64("max_amount", s.policy.AutoMaxAmount),
		)
		return
	}

	if err := s.settle(ctx, request.ID); err != nil {
		summary.SkippedOtherError++
		zap.L().With(opts...).Error("failed to settle payout", zap.Error(err))
		return
	}

	summary.MarkedPaid++
	zap.L().With(opts...).Info("payout settled")
}

// settle disburses and marks one payout paid. The status is re-checked under
// a row lock so a payout finalized between the queue read and now is left
// alone.
func (s *Service) settle(ctx context.Context, payoutID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		payoutsTx := s.payouts.WithTrx(tx)

		current, err := payoutsTx.FindOne(ctx, &payout.PayoutRequest{ID: payoutID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if current == nil {
			return payout.ErrPayoutNotFound
		}
		if current.Status != payout.StatusPending {
			return payout.ErrAlreadyFinalized
		}

		if err := s.gateway.Disburse(ctx, current); err != nil {
			return err
		}

		now := time.Now()
		return payoutsTx.Update(ctx, current.ID, map[string]any{
			"status":     payout.StatusPaid,
			"paid_at":    now,
			"updated_at": now,
		})
	})
}
