package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"datamarket-settlement/pkg/config"
	"datamarket-settlement/pkg/db/option"
	"datamarket-settlement/pkg/repository"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	withTrxFn func(tx *gorm.DB) repository.Repository[T]
	findFn    func(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	findOneFn func(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	updateFn  func(ctx context.Context, resourceID string, resource any) error
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
	if m.updateFn != nil {
		return m.updateFn(ctx, resourceID, resource)
	}
	return nil
}

func (m *repoMock[T]) BatchCreate(ctx context.Context, resources []*T) error { return nil }

func (m *repoMock[T]) BatchUpdate(ctx context.Context, resources []*T) error { return nil }

func (m *repoMock[T]) Count(ctx context.Context, query *T) (int64, error) { return 0, nil }

type scorerStub struct {
	scores map[string]float64
}

func (s *scorerStub) UserScore(ctx context.Context, userID string) float64 {
	score, ok := s.scores[userID]
	if !ok {
		return 100
	}
	return score
}

type gatewayStub struct {
	failFor map[string]error
	calls   []string
}

func (g *gatewayStub) Disburse(ctx context.Context, request *payout.PayoutRequest) error {
	g.calls = append(g.calls, request.ID)
	if err, ok := g.failFor[request.ID]; ok {
		return err
	}
	return nil
}

func pendingQueue(requests ...*payout.PayoutRequest) *repoMock[payout.PayoutRequest] {
	byID := make(map[string]*payout.PayoutRequest, len(requests))
	for _, r := range requests {
		byID[r.ID] = r
	}

	return &repoMock[payout.PayoutRequest]{
		findFn: func(ctx context.Context, query *payout.PayoutRequest, _ ...option.QueryOption) ([]*payout.PayoutRequest, error) {
			if query.Status != payout.StatusPending {
				return nil, errors.New("expected pending filter")
			}
			return requests, nil
		},
		findOneFn: func(ctx context.Context, query *payout.PayoutRequest, _ ...option.QueryOption) (*payout.PayoutRequest, error) {
			return byID[query.ID], nil
		},
		updateFn: func(ctx context.Context, resourceID string, resource any) error {
			updates := resource.(map[string]any)
			byID[resourceID].Status = updates["status"].(payout.Status)
			return nil
		},
	}
}

func newTestService(t *testing.T, payouts repository.Repository[payout.PayoutRequest], scorer TrustScorer, gateway Gateway) *Service {
	t.Helper()

	if gateway == nil {
		gateway = &gatewayStub{}
	}

	return &Service{
		db: testutil.NewTestDB(t),
		policy: config.PayoutPolicy{
			MinThreshold:      1000,
			AutoMinTrustScore: 40,
			AutoMaxAmount:     100000,
		},
		scorer:  scorer,
		gateway: gateway,
		payouts: payouts,
	}
}

func TestRunAutoSettlementEmptyQueue(t *testing.T) {
	svc := newTestService(t, pendingQueue(), &scorerStub{}, nil)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, &AutoProcessSummary{}, summary)
}

func TestRunAutoSettlementMarksEligiblePaid(t *testing.T) {
	queue := pendingQueue(
		&payout.PayoutRequest{ID: "po-1", UserID: "user-1", Amount: 2000, Status: payout.StatusPending},
		&payout.PayoutRequest{ID: "po-2", UserID: "user-2", Amount: 3000, Status: payout.StatusPending},
	)
	gateway := &gatewayStub{}
	svc := newTestService(t, queue, &scorerStub{}, gateway)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.TotalPending)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 2, summary.MarkedPaid)
	require.Equal(t, []string{"po-1", "po-2"}, gateway.calls)
}

func TestRunAutoSettlementSkipsLowTrust(t *testing.T) {
	request := &payout.PayoutRequest{ID: "po-1", UserID: "user-1", Amount: 2000, Status: payout.StatusPending}
	gateway := &gatewayStub{}
	svc := newTestService(t, pendingQueue(request), &scorerStub{scores: map[string]float64{"user-1": 39.9}}, gateway)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedLowTrust)
	require.Equal(t, 0, summary.MarkedPaid)
	require.Empty(t, gateway.calls)
	require.Equal(t, payout.StatusPending, request.Status)
}

func TestRunAutoSettlementBoundaryTrustScore(t *testing.T) {
	request := &payout.PayoutRequest{ID: "po-1", UserID: "user-1", Amount: 2000, Status: payout.StatusPending}
	svc := newTestService(t, pendingQueue(request), &scorerStub{scores: map[string]float64{"user-1": 40}}, nil)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.MarkedPaid)
	require.Equal(t, payout.StatusPaid, request.Status)
}

func TestRunAutoSettlementSkipsHighAmount(t *testing.T) {
	queue := pendingQueue(
		&payout.PayoutRequest{ID: "po-1", UserID: "user-1", Amount: 100001, Status: payout.StatusPending},
		// Equal to the limit is still eligible.
		&payout.PayoutRequest{ID: "po-2", UserID: "user-1", Amount: 100000, Status: payout.StatusPending},
	)
	svc := newTestService(t, queue, &scorerStub{}, nil)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedHighAmount)
	require.Equal(t, 1, summary.MarkedPaid)
}

func TestRunAutoSettlementIsolatesItemFailure(t *testing.T) {
	requests := []*payout.PayoutRequest{
		{ID: "po-1", UserID: "user-1", Amount: 1000, Status: payout.StatusPending},
		{ID: "po-2", UserID: "user-2", Amount: 1000, Status: payout.StatusPending},
		{ID: "po-3", UserID: "user-3", Amount: 1000, Status: payout.StatusPending},
		{ID: "po-4", UserID: "user-4", Amount: 1000, Status: payout.StatusPending},
		{ID: "po-5", UserID: "user-5", Amount: 1000, Status: payout.StatusPending},
	}
	gateway := &gatewayStub{failFor: map[string]error{"po-3": errors.New("provider timeout")}}
	svc := newTestService(t, pendingQueue(requests...), &scorerStub{}, gateway)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, summary.TotalPending)
	require.Equal(t, 5, summary.Processed)
	require.Equal(t, 4, summary.MarkedPaid)
	require.Equal(t, 1, summary.SkippedOtherError)
	require.Equal(t, payout.StatusPending, requests[2].Status)
	require.Equal(t, payout.StatusPaid, requests[4].Status)
}

func TestRunAutoSettlementSkipsConcurrentlyFinalized(t *testing.T) {
	request := &payout.PayoutRequest{ID: "po-1", UserID: "user-1", Amount: 1000, Status: payout.StatusPending}
	queue := pendingQueue(request)
	// Another worker finalizes the payout between the queue read and the
	// locked re-check.
	queue.findOneFn = func(ctx context.Context, query *payout.PayoutRequest, _ ...option.QueryOption) (*payout.PayoutRequest, error) {
		return &payout.PayoutRequest{ID: query.ID, Status: payout.StatusPaid}, nil
	}
	gateway := &gatewayStub{}
	svc := newTestService(t, queue, &scorerStub{}, gateway)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.SkippedOtherError)
	require.Empty(t, gateway.calls)
}

func TestRunAutoSettlementFatalWhenQueueUnavailable(t *testing.T) {
	svc := newTestService(t, &repoMock[payout.PayoutRequest]{
		findFn: func(ctx context.Context, _ *payout.PayoutRequest, _ ...option.QueryOption) ([]*payout.PayoutRequest, error) {
			return nil, errors.New("db unavailable")
		},
	}, &scorerStub{}, nil)

	summary, err := svc.RunAutoSettlement(context.Background())
	require.Nil(t, summary)
	require.ErrorIs(t, err, ErrPayoutProcessing)
}
