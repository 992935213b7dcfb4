package cron

import (
	"context"
	"fmt"

	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

const defaultReconcileLimit = 50

// TransferReconcileJobParams configure the payout reconciliation job.
type TransferReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler transferReconciler
	Limit      int
}

type transferReconciler interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

// NewTransferReconcileJob builds the cron job that polls the payment
// processor for pending payout outcomes.
func NewTransferReconcileJob(params TransferReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("transfer reconciler required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	return &transferReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		limit:      limit,
	}, nil
}

type transferReconcileJob struct {
	logg       *logger.Logger
	reconciler transferReconciler
	limit      int
}

func (j *transferReconcileJob) Name() string { return "transfer-reconcile" }

func (j *transferReconcileJob) Run(ctx context.Context) error {
	resolved, err := j.reconciler.ReconcilePending(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("reconcile pending transfers: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"resolved": resolved})
	j.logg.Info(logCtx, "transfer reconciliation complete")
	return nil
}
