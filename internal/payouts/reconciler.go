package payouts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

// Reconciler settles in-flight transfers: pending processor payouts are
// polled against the processor, and parked manual transfers are resolved
// by an operator.
type Reconciler interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
	Resolve(ctx context.Context, transferID uuid.UUID, status enums.TransferStatus, note string) error
}

type reconciler struct {
	repo      *Repository
	processor ProcessorGateway
	logg      *logger.Logger
}

func NewReconciler(repo *Repository, processor ProcessorGateway, logg *logger.Logger) (Reconciler, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor gateway is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &reconciler{repo: repo, processor: processor, logg: logg}, nil
}

// ReconcilePending polls the processor for each pending transfer and
// flips it to a terminal status when the payout settled or failed.
// Returns the number of transfers resolved.
func (r *reconciler) ReconcilePending(ctx context.Context, limit int) (int, error) {
	rows, err := r.repo.ListPendingProcessor(ctx, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	var errs error
	for i := range rows {
		transfer := &rows[i]
		if transfer.TransferRef == nil {
			continue
		}
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"transfer_id": transfer.ID.String(),
			"payout_ref":  *transfer.TransferRef,
		})

		payout, err := r.processor.GetPayout(ctx, *transfer.TransferRef)
		if err != nil {
			r.logg.Warn(logCtx, fmt.Sprintf("payout status check failed: %v", err))
			errs = multierr.Append(errs, err)
			continue
		}

		next, done := transferStatusForPayout(payout.Status)
		if !done {
			continue
		}
		if err := r.repo.UpdateStatus(ctx, transfer.ID, next, nil); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		resolved++
		r.logg.Info(logCtx, fmt.Sprintf("transfer reconciled to %s", next))
	}
	return resolved, errs
}

// Resolve applies an operator decision to a non-terminal transfer.
func (r *reconciler) Resolve(ctx context.Context, transferID uuid.UUID, status enums.TransferStatus, note string) error {
	if status != enums.TransferStatusCompleted && status != enums.TransferStatusFailed {
		return errors.New(errors.CodeValidation, "resolution status must be completed or failed")
	}
	transfer, err := r.repo.GetByID(ctx, transferID)
	if err != nil {
		return err
	}
	if transfer.Status.IsTerminal() {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("transfer is already %s", transfer.Status))
	}
	var notes *string
	if note != "" {
		notes = &note
	}
	return r.repo.UpdateStatus(ctx, transferID, status, notes)
}

func transferStatusForPayout(status stripe.PayoutStatus) (enums.TransferStatus, bool) {
	switch status {
	case stripe.PayoutStatusPaid:
		return enums.TransferStatusCompleted, true
	case stripe.PayoutStatusFailed, stripe.PayoutStatusCanceled:
		return enums.TransferStatusFailed, true
	default:
		// pending and in_transit stay open
		return "", false
	}
}
