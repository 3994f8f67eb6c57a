package ledger

import (
	"context"
	"errors"
	"time"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db/option"
	"datamarket-settlement/pkg/errutil"
	"datamarket-settlement/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDuplicateReference is returned when a reward reference ID was already
// recorded; the original row stands.
var ErrDuplicateReference = errors.New("reference_id already exists")

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	policy config.PayoutPolicy

	rewards repository.Repository[Reward]
	claims  repository.Repository[PayoutClaim]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Policy config.PayoutPolicy
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		policy: p.Policy,

		rewards: repository.ProvideStore[Reward](p.DB),
		claims:  repository.ProvideStore[PayoutClaim](p.DB),
	}
}

// GetBalance derives the user's balance snapshot. No lock is held; repeated
// calls with no intervening writes return identical results.
func (s *Service) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", userID),
	}

	balance, err := s.derive(ctx, s.rewards, s.claims, userID)
	if err != nil {
		zap.L().With(opts...).Error("failed to derive balance", zap.Error(err))
		return nil, err
	}

	return balance, nil
}

// BalanceForUpdate derives the balance inside the caller's transaction,
// taking row locks on the user's reward and payout rows so concurrent
// payout creations for the same user serialize. Aggregation happens in Go
// because FOR UPDATE cannot be combined with SUM.
func (s *Service) BalanceForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*Balance, error) {
	return s.derive(ctx, s.rewards.WithTrx(tx), s.claims.WithTrx(tx), userID, option.WithLockingUpdate())
}

func (s *Service) derive(ctx context.Context, rewards repository.Repository[Reward], claims repository.Repository[PayoutClaim], userID string, opts ...option.QueryOption) (*Balance, error) {
	earned, err := rewards.Find(ctx, &Reward{UserID: userID}, opts...)
	if err != nil {
		return nil, err
	}

	claimed, err := claims.Find(ctx, &PayoutClaim{UserID: userID}, opts...)
	if err != nil {
		return nil, err
	}

	var totalEarned int64
	for _, r := range earned {
		totalEarned += r.Amount
	}

	var totalClaimed int64
	for _, c := range claimed {
		if c.countsAgainstBalance() {
			totalClaimed += c.Amount
		}
	}

	available := totalEarned - totalClaimed
	if available < 0 {
		// Claims can only outrun rewards through out-of-band writes; the
		// exposed balance still never goes negative.
		zap.L().Warn("claimed exceeds earned",
			zap.String("user_id", userID),
			zap.Int64("total_earned", totalEarned),
			zap.Int64("total_claimed", totalClaimed),
		)
		available = 0
	}

	return &Balance{
		TotalEarned:      totalEarned,
		TotalClaimed:     totalClaimed,
		AvailableBalance: available,
		IsClaimable:      available >= s.policy.MinThreshold,
	}, nil
}

// RecordReward appends a reward credit. Reference IDs are idempotency keys:
// a duplicate leaves the existing row untouched and fails the call.
func (s *Service) RecordReward(ctx context.Context, input RecordRewardInput) (*Reward, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	opts := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", input.UserID),
		zap.String("reference_id", input.ReferenceID),
	}

	if input.Amount <= 0 {
		return nil, errutil.BadRequest("amount must be > 0", nil)
	}

	referenceID := input.ReferenceID
	if referenceID == "" {
		generated, err := GenerateReferenceID()
		if err != nil {
			zap.L().With(opts...).Error("failed to generate reference_id", zap.Error(err))
			return nil, err
		}
		referenceID = generated
	}

	if exist, _ := s.rewards.FindOne(ctx, &Reward{ReferenceID: referenceID}); exist != nil {
		zap.L().With(opts...).Warn("reference_id already exists")
		return nil, errutil.Conflict("reference_id already exists", ErrDuplicateReference)
	}

	reward := &Reward{
		ID:          s.node.Generate().String(),
		UserID:      input.UserID,
		Amount:      input.Amount,
		ReferenceID: referenceID,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.rewards.WithTrx(tx).Create(ctx, reward)
	}); err != nil {
		zap.L().With(opts...).Error("failed to record reward", zap.Error(err))
		return nil, err
	}

	return reward, nil
}

// ListRewards returns the user's reward history, newest first.
func (s *Service) ListRewards(ctx context.Context, userID string) ([]*Reward, error) {
	return s.rewards.Find(ctx, &Reward{UserID: userID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
		Allow:   map[string]bool{"created_at": true},
	}))
}
