package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"datamarket-settlement/pkg/db/option"
	"datamarket-settlement/pkg/repository"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn func(tx *gorm.DB) repository.Repository[T]
	findFn    func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	countFn   func(ctx context.Context, query *T) (int64, error)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] {
	if m.withTrxFn != nil {
		return m.withTrxFn(tx)
	}
	return m
}

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error { return nil }

func (m *repoMock[T]) Update(ctx context.Context, resourceID string, resource any) error {
	return nil
}

func (m *repoMock[T]) BatchCreate(ctx context.Context, resources []*T) error { return nil }

func (m *repoMock[T]) BatchUpdate(ctx context.Context, resources []*T) error { return nil }

func (m *repoMock[T]) Count(ctx context.Context, query *T) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, query)
	}
	return 0, nil
}

func rewardCount(n int64) *repoMock[ledger.Reward] {
	return &repoMock[ledger.Reward]{
		countFn: func(ctx context.Context, _ *ledger.Reward) (int64, error) {
			return n, nil
		},
	}
}

func paidPayoutCount(n int64) *repoMock[payout.PayoutRequest] {
	return &repoMock[payout.PayoutRequest]{
		countFn: func(ctx context.Context, query *payout.PayoutRequest) (int64, error) {
			if query.Status != payout.StatusPaid {
				return 0, errors.New("expected paid status filter")
			}
			return n, nil
		},
	}
}

func TestUserScoreNoHistory(t *testing.T) {
	svc := &Service{
		rewards: rewardCount(0),
		payouts: paidPayoutCount(0),
	}

	require.Equal(t, 0.0, svc.UserScore(context.Background(), "user-1"))
}

func TestUserScoreWeights(t *testing.T) {
	svc := &Service{
		rewards: rewardCount(10),
		payouts: paidPayoutCount(3),
	}

	// 10*2 + 3*5
	require.Equal(t, 35.0, svc.UserScore(context.Background(), "user-1"))
}

func TestUserScoreCappedAtMax(t *testing.T) {
	svc := &Service{
		rewards: rewardCount(200),
		payouts: paidPayoutCount(50),
	}

	require.Equal(t, MaxScore, svc.UserScore(context.Background(), "user-1"))
}

func TestUserScoreNeutralOnDataFailure(t *testing.T) {
	svc := &Service{
		rewards: &repoMock[ledger.Reward]{
			countFn: func(ctx context.Context, _ *ledger.Reward) (int64, error) {
				return 0, errors.New("db unavailable")
			},
		},
		payouts: paidPayoutCount(0),
	}

	require.Equal(t, NeutralScore, svc.UserScore(context.Background(), "user-1"))
}

func declinedEvents(offerIDs ...string) *repoMock[ConsentEvent] {
	events := make([]*ConsentEvent, 0, len(offerIDs))
	for i, offerID := range offerIDs {
		events = append(events, &ConsentEvent{
			ID:      string(rune('a' + i)),
			OfferID: offerID,
			Action:  ActionDeclined,
		})
	}
	return &repoMock[ConsentEvent]{
		findFn: func(ctx context.Context, query *ConsentEvent, _ ...option.QueryOption) ([]*ConsentEvent, error) {
			if query.Action != ActionDeclined {
				return nil, errors.New("expected declined filter")
			}
			return events, nil
		},
	}
}

func TestBuyerScorePenalizesDeclines(t *testing.T) {
	offers := make([]string, 13)
	for i := range offers {
		offers[i] = "buyer-acme-offer-123"
	}

	svc := &Service{events: declinedEvents(offers...)}

	// 100 - 13*5
	require.Equal(t, 35.0, svc.BuyerScore(context.Background(), "acme"))
}

func TestBuyerScoreIgnoresOtherBuyers(t *testing.T) {
	svc := &Service{events: declinedEvents(
		"buyer-acme-offer-1",
		"buyer-globex-offer-1",
		"buyer-globex-offer-2",
	)}

	require.Equal(t, 95.0, svc.BuyerScore(context.Background(), "acme"))
}

func TestBuyerScoreSkipsMalformedOfferIDs(t *testing.T) {
	svc := &Service{events: declinedEvents(
		"buyer-acme-offer-1",
		"campaign-xyz",
		"buyer--offer-1",
		"buyer-acme",
	)}

	require.Equal(t, 95.0, svc.BuyerScore(context.Background(), "acme"))
}

func TestBuyerScoreFloorsAtZero(t *testing.T) {
	offers := make([]string, 25)
	for i := range offers {
		offers[i] = "buyer-acme-offer-9"
	}

	svc := &Service{events: declinedEvents(offers...)}

	require.Equal(t, MinScore, svc.BuyerScore(context.Background(), "acme"))
}

func TestBuyerScoreNeutralOnDataFailure(t *testing.T) {
	svc := &Service{
		events: &repoMock[ConsentEvent]{
			findFn: func(ctx context.Context, _ *ConsentEvent, _ ...option.QueryOption) ([]*ConsentEvent, error) {
				return nil, errors.New("db unavailable")
			},
		},
	}

	require.Equal(t, NeutralScore, svc.BuyerScore(context.Background(), "acme"))
}

func TestParseBuyerOfferID(t *testing.T) {
	tests := []struct {
		offerID string
		buyerID string
		ok      bool
	}{
		{"buyer-acme-offer-123", "acme", true},
		{"buyer-acme-corp-offer-123", "acme-corp", true},
		{"buyer-acme-offer-", "acme", true},
		{"buyer-acme", "", false},
		{"buyer--offer-1", "", false},
		{"campaign-xyz", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		buyerID, ok := ParseBuyerOfferID(tt.offerID)
		require.Equal(t, tt.ok, ok, "offer_id=%q", tt.offerID)
		require.Equal(t, tt.buyerID, buyerID, "offer_id=%q", tt.offerID)
	}
}

func TestLevelFor(t *testing.T) {
	require.Equal(t, LevelLow, LevelFor(0))
	require.Equal(t, LevelLow, LevelFor(39.9))
	require.Equal(t, LevelMedium, LevelFor(40))
	require.Equal(t, LevelMedium, LevelFor(69.9))
	require.Equal(t, LevelHigh, LevelFor(70))
	require.Equal(t, LevelHigh, LevelFor(100))
}
