package payout

import (
	"context"
	"time"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db/option"
	"datamarket-settlement/pkg/repository"
	"datamarket-settlement/pkg/sequence"
	"datamarket-settlement/services/ledger"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BalanceReader derives a user's balance inside the caller's transaction,
// holding locks that serialize concurrent payout creations for the user.
type BalanceReader interface {
	BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*ledger.Balance, error)
}

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	policy config.PayoutPolicy
	seq    sequence.Generator

	balance BalanceReader
	payouts repository.Repository[PayoutRequest]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Policy config.PayoutPolicy
	Seq    sequence.Generator `optional:"true"`
	Ledger *ledger.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		policy: p.Policy,
		seq:    p.Seq,

		balance: p.Ledger,
		payouts: repository.ProvideStore[PayoutRequest](p.DB),
	}
}

// Create validates and persists a new pending payout request. The balance
// check and the insert run in one transaction: the balance is re-derived
// under row locks, so a concurrent creation for the same user cannot claim
// the same funds twice.
func (s *Service) Create(ctx context.Context, userID string, amount int64) (*PayoutRequest, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
	}

	request := &PayoutRequest{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	code, err := s.nextCode(ctx)
	if err != nil {
		zap.L().With(opts...).Error("failed to generate payout code", zap.Error(err))
		return nil, err
	}
	request.Code = code

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		balance, err := s.balance.BalanceForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		if amount > balance.AvailableBalance {
			zap.L().With(opts...).Warn("payout request exceeds available balance",
				zap.Int64("available_balance", balance.AvailableBalance),
			)
			return ErrInsufficientBalance
		}

		if amount < s.policy.MinThreshold {
			zap.L().With(opts...).Warn("payout request below minimum threshold",
				zap.Int64("min_threshold", s.policy.MinThreshold),
			)
			return ErrBelowMinimumThreshold
		}

		return s.payouts.WithTrx(tx).Create(ctx, request)
	}); err != nil {
		return nil, err
	}

	zap.L().With(opts...).Info("payout request created",
		zap.String("payout_id", request.ID),
		zap.String("code", request.Code),
	)

	return request, nil
}

// Get returns the payout request or ErrPayoutNotFound.
func (s *Service) Get(ctx context.Context, payoutID string) (*PayoutRequest, error) {
	request, err := s.payouts.FindOne(ctx, &PayoutRequest{ID: payoutID})
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrPayoutNotFound
	}
	return request, nil
}

// ListByUser returns the user's payout requests, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*PayoutRequest, error) {
	return s.payouts.Find(ctx, &PayoutRequest{UserID: userID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
		Allow:   map[string]bool{"created_at": true},
	}))
}

// MarkPaid is the administrative pending -> paid transition.
func (s *Service) MarkPaid(ctx context.Context, payoutID string) (*PayoutRequest, error) {
	return s.finalize(ctx, payoutID, StatusPaid, "")
}

// MarkFailed is the administrative pending -> failed transition. Auto
// settlement never takes it; a skipped payout stays pending.
func (s *Service) MarkFailed(ctx context.Context, payoutID string, reason string) (*PayoutRequest, error) {
	return s.finalize(ctx, payoutID, StatusFailed, reason)
}

func (s *Service) finalize(ctx context.Context, payoutID string, target Status, reason string) (*PayoutRequest, error) {
	opts := []zap.Field{
		zap.String("payout_id", payoutID),
		zap.String("target_status", string(target)),
	}

	var request *PayoutRequest
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		payoutsTx := s.payouts.WithTrx(tx)

		current, err := payoutsTx.FindOne(ctx, &PayoutRequest{ID: payoutID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if current == nil {
			return ErrPayoutNotFound
		}
		if current.Status.Terminal() {
			zap.L().With(opts...).Warn("rejecting transition on finalized payout",
				zap.String("status", string(current.Status)),
			)
			return ErrAlreadyFinalized
		}

		now := time.Now()
		updates := map[string]any{
			"status":     target,
			"updated_at": now,
		}
		switch target {
		case StatusPaid:
			updates["paid_at"] = now
		case StatusFailed:
			updates["failure_reason"] = reason
		}

		if err := payoutsTx.Update(ctx, current.ID, updates); err != nil {
			return err
		}

		current.Status = target
		current.UpdatedAt = now
		if target == StatusPaid {
			current.PaidAt = &now
		} else {
			current.FailureReason = reason
		}
		request = current
		return nil
	}); err != nil {
		zap.L().With(opts...).Error("failed to finalize payout", zap.Error(err))
		return nil, err
	}

	zap.L().With(opts...).Info("payout finalized", zap.String("user_id", request.UserID))
	return request, nil
}

func (s *Service) nextCode(ctx context.Context) (string, error) {
	if s.seq != nil {
		return s.seq.NextPayoutCode(ctx)
	}

	// No sequence backend wired (tests, local runs): fall back to a random
	// daily reference.
	ref, err := ledger.GenerateReferenceID()
	if err != nil {
		return "", err
	}
	return "PO-" + ref, nil
}
