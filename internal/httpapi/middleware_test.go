package httpapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"datamarket-settlement/pkg/errutil"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/settlement"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestAsBaseErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err  error
		code errutil.CoreStatus
	}{
		{payout.ErrPayoutNotFound, errutil.StatusNotFound},
		{payout.ErrInsufficientBalance, errutil.StatusUnprocessableEntity},
		{payout.ErrBelowMinimumThreshold, errutil.StatusUnprocessableEntity},
		{payout.ErrAlreadyFinalized, errutil.StatusConflict},
		{ledger.ErrDuplicateReference, errutil.StatusConflict},
		{settlement.ErrPayoutProcessing, errutil.StatusInternal},
		{fmt.Errorf("wrapped: %w", payout.ErrPayoutNotFound), errutil.StatusNotFound},
	}

	for _, tt := range tests {
		be := asBaseError(tt.err)
		require.Equal(t, tt.code, be.Status(), "err=%v", tt.err)
	}
}

func TestAsBaseErrorPassesThroughBaseError(t *testing.T) {
	original := errutil.BadRequest("amount must be > 0", nil)

	be := asBaseError(original)
	require.Equal(t, errutil.StatusBadRequest, be.Status())
	require.Equal(t, "amount must be > 0", be.Message)
}

func TestAsBaseErrorHidesUnknownCauses(t *testing.T) {
	be := asBaseError(fmt.Errorf("pq: connection refused"))
	require.Equal(t, errutil.StatusInternal, be.Status())
	require.Equal(t, "internal error", be.Message)
}
