package settlement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const TaskTypeAutoSettlement = "settlement:auto_run"

type autoSettlementPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewAutoSettlementTask builds the queue task that triggers one settlement
// run on the worker.
func NewAutoSettlementTask() (*asynq.Task, error) {
	payload, err := json.Marshal(autoSettlementPayload{RequestedAt: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAutoSettlement, payload, asynq.Queue("settlement")), nil
}

// RegisterTasks binds the settlement handlers onto the worker mux.
func RegisterTasks(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(TaskTypeAutoSettlement, s.HandleAutoSettlementTask)
}

func (s *Service) HandleAutoSettlementTask(ctx context.Context, t *asynq.Task) error {
	var payload autoSettlementPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("invalid auto settlement payload", zap.Error(err))
		return err
	}

	zap.L().Info("auto settlement task received", zap.Time("requested_at", payload.RequestedAt))

	if _, err := s.RunAutoSettlement(ctx); err != nil {
		return err
	}
	return nil
}

var Worker = fx.Module("settlement.worker",
	fx.Invoke(RegisterTasks),
)
