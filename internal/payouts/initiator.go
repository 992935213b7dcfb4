package payouts

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/metrics"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
)

const payoutCurrency = "usd"

// ProcessorGateway is the slice of the Stripe client payouts need.
type ProcessorGateway interface {
	CreatePayout(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.Payout, error)
	GetPayout(ctx context.Context, payoutID string) (*stripe.Payout, error)
}

// Initiator moves calculated profit to the operator's settlement
// destination, recording exactly one transfer per invocation.
type Initiator interface {
	Initiate(ctx context.Context, order *models.Order, amountCents int64) (*models.ProfitTransfer, error)
}

type Params struct {
	DB        *gorm.DB
	Repo      *Repository
	Processor ProcessorGateway
	Outbox    *outbox.Service
	Logger    *logger.Logger
	Metrics   *metrics.PipelineMetrics
}

type initiator struct {
	db        *gorm.DB
	repo      *Repository
	processor ProcessorGateway
	emitter   *outbox.Service
	logg      *logger.Logger
	metrics   *metrics.PipelineMetrics
}

func NewInitiator(p Params) (Initiator, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if p.Processor == nil {
		return nil, fmt.Errorf("processor gateway is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &initiator{
		db:        p.DB,
		repo:      p.Repo,
		processor: p.Processor,
		emitter:   p.Outbox,
		logg:      p.Logger,
		metrics:   p.Metrics,
	}, nil
}

// Initiate records a transfer for the order's profit. Processor-settled
// orders get a payout request; square and manual methods settle outside
// the processor and are parked as pending_manual for an operator.
// A processor failure is recorded as a failed transfer and surfaced with
// PAYOUT_FAILED so the caller can treat it as non-fatal.
func (i *initiator) Initiate(ctx context.Context, order *models.Order, amountCents int64) (*models.ProfitTransfer, error) {
	if order == nil {
		return nil, errors.New(errors.CodeValidation, "order is required")
	}
	if amountCents < 0 {
		return nil, errors.New(errors.CodeInvalidAmount, "payout amount must not be negative")
	}

	count, err := i.repo.CountByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	attempt := int(count) + 1

	logCtx := i.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"attempt":  attempt,
		"amount":   amountCents,
	})

	transfer := &models.ProfitTransfer{
		OrderID:     order.ID,
		AmountCents: amountCents,
		Attempt:     attempt,
	}

	var payoutErr error
	switch {
	case amountCents == 0:
		transfer.Method = enums.TransferMethodManual
		transfer.Status = enums.TransferStatusCompleted
		transfer.Notes = strPtr("zero profit, nothing to transfer")

	case order.PaymentMethod == enums.PaymentMethodStripe:
		payout, err := i.processor.CreatePayout(ctx, amountCents, payoutCurrency, map[string]string{
			"order_id": order.ID.String(),
			"attempt":  fmt.Sprintf("%d", attempt),
		})
		transfer.Method = enums.TransferMethodProcessor
		if err != nil {
			transfer.Status = enums.TransferStatusFailed
			transfer.Notes = strPtr(err.Error())
			payoutErr = errors.Wrap(errors.CodePayoutFailed, err, "create processor payout")
			i.metrics.IncPayoutFailure()
		} else {
			transfer.Status = enums.TransferStatusPending
			transfer.TransferRef = strPtr(payout.ID)
		}

	default:
		// square exposes no payout-creation API; manual settles by hand
		transfer.Method = enums.TransferMethodManual
		transfer.Status = enums.TransferStatusPendingManual
		transfer.Notes = strPtr(fmt.Sprintf("manual settlement required for %s order", order.PaymentMethod))
	}

	err = dbpkg.RunInTx(ctx, i.db, func(tx *gorm.DB) error {
		if err := i.repo.WithTx(tx).Insert(ctx, transfer); err != nil {
			return err
		}
		if i.emitter != nil {
			return i.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.OutboxEventTransferRecorded,
				AggregateID: transfer.OrderID,
				Data: map[string]any{
					"transfer_id":  transfer.ID.String(),
					"amount_cents": transfer.AmountCents,
					"method":       transfer.Method,
					"status":       transfer.Status,
					"attempt":      transfer.Attempt,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if payoutErr != nil {
		i.logg.Error(logCtx, "payout failed, transfer recorded for reconciliation", payoutErr)
		return transfer, payoutErr
	}
	i.logg.Info(logCtx, fmt.Sprintf("profit transfer recorded (%s)", transfer.Status))
	return transfer, nil
}

func strPtr(s string) *string { return &s }
