package trust

import (
	"context"
	"strconv"
	"time"

	"datamarket-settlement/pkg/rediskey"
	"datamarket-settlement/pkg/repository"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Score weights. Per-tenant tuning is out of scope, so these stay constants
// rather than configuration.
const (
	rewardWeight     = 2.0
	paidPayoutWeight = 5.0
	declinePenalty   = 5.0

	MaxScore = 100.0
	MinScore = 0.0

	// NeutralScore is the documented fallback when score inputs cannot be
	// read: scoring degrades silently instead of failing the caller's flow.
	NeutralScore = 50.0

	// Level bands.
	mediumThreshold = 40.0
	highThreshold   = 70.0
)

const cacheTTL = 5 * time.Minute

type Service struct {
	db  *gorm.DB
	rdb *redis.Client

	rewards repository.Repository[ledger.Reward]
	payouts repository.Repository[payout.PayoutRequest]
	events  repository.Repository[ConsentEvent]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Redis *redis.Client `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:  p.DB,
		rdb: p.Redis,

		rewards: repository.ProvideStore[ledger.Reward](p.DB),
		payouts: repository.ProvideStore[payout.PayoutRequest](p.DB),
		events:  repository.ProvideStore[ConsentEvent](p.DB),
	}
}

// UserScore computes the earner's trust score from historical activity:
// min(100, reward_count*2 + successful_payout_count*5). Data-access failure
// yields NeutralScore; scoring never blocks the caller's flow.
func (s *Service) UserScore(ctx context.Context, userID string) float64 {
	key := rediskey.BuildUserTrustKey(userID)
	if score, ok := s.cached(ctx, key); ok {
		return score
	}

	var rewardCount, paidCount int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rewardCount, err = s.rewards.Count(gctx, &ledger.Reward{UserID: userID})
		return err
	})
	g.Go(func() error {
		var err error
		paidCount, err = s.payouts.Count(gctx, &payout.PayoutRequest{UserID: userID, Status: payout.StatusPaid})
		return err
	})

	if err := g.Wait(); err != nil {
		zap.L().Warn("user trust score unavailable, using neutral default",
			zap.String("user_id", userID),
			zap.Float64("default", NeutralScore),
			zap.Error(err),
		)
		return NeutralScore
	}

	score := clamp(float64(rewardCount)*rewardWeight + float64(paidCount)*paidPayoutWeight)
	s.cache(ctx, key, score)
	return score
}

// BuyerScore computes the data buyer's trust score from declined consent
// events: max(0, 100 - 5*decline_count). Offer IDs that do not carry the
// buyer pattern are skipped, never fatal.
func (s *Service) BuyerScore(ctx context.Context, buyerID string) float64 {
	key := rediskey.BuildBuyerTrustKey(buyerID)
	if score, ok := s.cached(ctx, key); ok {
		return score
	}

	declined, err := s.events.Find(ctx, &ConsentEvent{Action: ActionDeclined})
	if err != nil {
		zap.L().Warn("buyer trust score unavailable, using neutral default",
			zap.String("buyer_id", buyerID),
			zap.Float64("default", NeutralScore),
			zap.Error(err),
		)
		return NeutralScore
	}

	var declineCount int64
	for _, ev := range declined {
		owner, ok := ParseBuyerOfferID(ev.OfferID)
		if !ok {
			zap.L().Debug("skipping consent event with unparseable offer_id",
				zap.String("event_id", ev.ID),
				zap.String("offer_id", ev.OfferID),
			)
			continue
		}
		if owner == buyerID {
			declineCount++
		}
	}

	score := clamp(MaxScore - declinePenalty*float64(declineCount))
	s.cache(ctx, key, score)
	return score
}

// LevelFor bands a score: <40 low, 40-69 medium, >=70 high.
func LevelFor(score float64) Level {
	switch {
	case score < mediumThreshold:
		return LevelLow
	case score < highThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func clamp(score float64) float64 {
	if score > MaxScore {
		return MaxScore
	}
	if score < MinScore {
		return MinScore
	}
	return score
}

// cached reads a score from redis; any cache failure is a miss.
func (s *Service) cached(ctx context.Context, key string) (float64, bool) {
	if s.rdb == nil {
		return 0, false
	}

	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			zap.L().Debug("trust cache read failed", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}

	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

func (s *Service) cache(ctx context.Context, key string, score float64) {
	if s.rdb == nil {
		return
	}

	if err := s.rdb.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), cacheTTL).Err(); err != nil {
		zap.L().Debug("trust cache write failed", zap.String("key", key), zap.Error(err))
	}
}
