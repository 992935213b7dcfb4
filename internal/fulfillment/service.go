package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/internal/payments"
	"github.com/dropflowhq/dropflow-backend/internal/payouts"
	"github.com/dropflowhq/dropflow-backend/internal/suppliers"
	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/metrics"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
)

// ProfitCalculator derives the operator margin for an order.
type ProfitCalculator interface {
	Calculate(order *models.Order) (int64, error)
}

// TransferLookup answers whether an order already has transfers on file.
type TransferLookup interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProfitTransfer, error)
}

// Service drives orders through the fulfillment pipeline.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ProcessPendingOrders(ctx context.Context) error
	GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*OrderStatusView, error)
	TrackSupplierOrder(ctx context.Context, supplierOrderID uuid.UUID) (*TrackingInfo, error)
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID) error
}

type Params struct {
	DB              *gorm.DB
	Repo            *Repository
	SupplierOrders  *suppliers.Repository
	Verifier        payments.Verifier
	Calculator      ProfitCalculator
	Dispatcher      suppliers.Dispatcher
	Payouts         payouts.Initiator
	Transfers       TransferLookup
	Outbox          *outbox.Service
	Logger          *logger.Logger
	Metrics         *metrics.PipelineMetrics
	BatchSize       int
	StaleClaimAfter time.Duration
}

type service struct {
	db             *gorm.DB
	repo           *Repository
	supplierOrders *suppliers.Repository
	verifier       payments.Verifier
	calculator     ProfitCalculator
	dispatcher     suppliers.Dispatcher
	payouts        payouts.Initiator
	transfers      TransferLookup
	emitter        *outbox.Service
	logg           *logger.Logger
	metrics        *metrics.PipelineMetrics
	batchSize      int
	staleAfter     time.Duration
}

func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if p.SupplierOrders == nil {
		return nil, fmt.Errorf("supplier order repository is required")
	}
	if p.Verifier == nil {
		return nil, fmt.Errorf("payment verifier is required")
	}
	if p.Calculator == nil {
		return nil, fmt.Errorf("profit calculator is required")
	}
	if p.Dispatcher == nil {
		return nil, fmt.Errorf("supplier dispatcher is required")
	}
	if p.Payouts == nil {
		return nil, fmt.Errorf("payout initiator is required")
	}
	if p.Transfers == nil {
		return nil, fmt.Errorf("transfer lookup is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 10
	}
	if p.StaleClaimAfter <= 0 {
		p.StaleClaimAfter = 15 * time.Minute
	}
	return &service{
		db:             p.DB,
		repo:           p.Repo,
		supplierOrders: p.SupplierOrders,
		verifier:       p.Verifier,
		calculator:     p.Calculator,
		dispatcher:     p.Dispatcher,
		payouts:        p.Payouts,
		transfers:      p.Transfers,
		emitter:        p.Outbox,
		logg:           p.Logger,
		metrics:        p.Metrics,
		batchSize:      p.BatchSize,
		staleAfter:     p.StaleClaimAfter,
	}, nil
}

// CreateOrder validates and persists an order in pending state.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, errors.New(errors.CodeUnsupportedPaymentMethod,
			fmt.Sprintf("payment method %q is not supported", input.PaymentMethod))
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, errors.New(errors.CodeValidation, "customer name and email are required")
	}
	if len(input.Items) == 0 {
		return nil, errors.New(errors.CodeValidation, "order requires at least one item")
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		PaymentRef:      input.PaymentRef,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
	}

	var total int64
	for _, in := range input.Items {
		if in.Qty <= 0 {
			return nil, errors.New(errors.CodeValidation, "item quantity must be positive")
		}
		if in.UnitPriceCents < 0 {
			return nil, errors.New(errors.CodeInvalidAmount, "item unit price must not be negative")
		}
		if strings.TrimSpace(in.SupplierName) == "" {
			return nil, errors.New(errors.CodeValidation, "item supplier is required")
		}
		itemTotal := int64(in.Qty) * in.UnitPriceCents
		total += itemTotal
		order.Items = append(order.Items, models.OrderItem{
			ProductID:         in.ProductID,
			ProductName:       in.ProductName,
			Qty:               in.Qty,
			UnitPriceCents:    in.UnitPriceCents,
			TotalCents:        itemTotal,
			MarginFraction:    in.MarginFraction,
			SupplierName:      in.SupplierName,
			FulfillmentStatus: enums.ItemFulfillmentPending,
		})
	}
	order.TotalCents = total

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, fmt.Sprintf("order %s accepted", order.OrderNumber))
	return order, nil
}

// ProcessPendingOrders runs one batch: freshly pending orders plus stale
// in-flight ones left behind by an interrupted run. Orders are processed
// independently; one order's failure never rolls back another.
func (s *service) ProcessPendingOrders(ctx context.Context) error {
	pending, err := s.repo.FetchPending(ctx, s.batchSize)
	if err != nil {
		return err
	}
	// stale resumes share the batch bound with fresh pending orders
	var stale []models.Order
	if remaining := s.batchSize - len(pending); remaining > 0 {
		stale, err = s.repo.FetchStaleInFlight(ctx, time.Now().Add(-s.staleAfter), remaining)
		if err != nil {
			return err
		}
	}

	orders := append(pending, stale...)
	if len(orders) == 0 {
		return nil
	}
	s.logg.Info(ctx, fmt.Sprintf("processing %d orders (%d pending, %d resumed)",
		len(orders), len(pending), len(stale)))

	var errs error
	for i := range orders {
		order := &orders[i]
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		if err := s.processOne(logCtx, order); err != nil {
			// infrastructure failure: order stays in its last persisted
			// state and is retried on the next trigger
			s.logg.Error(logCtx, "order processing aborted", err)
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	return errs
}

func (s *service) processOne(ctx context.Context, order *models.Order) error {
	if order.Status.IsTerminal() {
		return nil
	}

	if order.Status == enums.OrderStatusPending {
		claimed, err := s.repo.ClaimPending(ctx, order.ID)
		if err != nil {
			return err
		}
		if !claimed {
			s.logg.Info(ctx, "order already claimed, skipping")
			return nil
		}
		order.Status = enums.OrderStatusPaymentVerifying
	}

	// payment phase; skipped entirely once payment_status is paid
	if order.PaymentStatus != enums.PaymentStatusPaid {
		if err := s.verifier.Verify(ctx, order.PaymentMethod, deref(order.PaymentRef)); err != nil {
			if errors.HasCode(err, errors.CodeDependency) {
				return err
			}
			return s.failOrder(ctx, order, err)
		}
		if err := s.advance(ctx, order, enums.OrderStatusPaid, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		s.logg.Info(ctx, "payment verified")
	} else if order.Status == enums.OrderStatusPaymentVerifying {
		if err := s.advance(ctx, order, enums.OrderStatusPaid, nil); err != nil {
			return err
		}
	}

	// profit phase; deterministic, safe to recompute on resume
	profitCents, err := s.calculator.Calculate(order)
	if err != nil {
		return s.failOrder(ctx, order, err)
	}
	if err := s.repo.UpdateOrder(ctx, order.ID, map[string]any{
		"profit_cents": profitCents,
	}); err != nil {
		return err
	}
	order.ProfitCents = &profitCents

	if err := s.advance(ctx, order, enums.OrderStatusFulfilling, nil); err != nil {
		return err
	}

	// dispatch phase: items in list order, abort on first failure
	for i := range order.Items {
		item := &order.Items[i]
		if item.SupplierOrderID != nil {
			continue
		}
		if _, err := s.dispatcher.Dispatch(ctx, item, order.ShippingAddress); err != nil {
			if errors.HasCode(err, errors.CodeDependency) {
				return err
			}
			if updErr := s.repo.UpdateItem(ctx, item.ID, map[string]any{
				"fulfillment_status": enums.ItemFulfillmentFailed,
			}); updErr != nil {
				return updErr
			}
			return s.failOrder(ctx, order, err)
		}
	}

	// payout phase: non-fatal; skip if an active transfer already exists
	if err := s.settleProfit(ctx, order, profitCents); err != nil {
		return err
	}

	return s.completeOrder(ctx, order)
}

// advance moves the order forward through the pipeline state machine,
// refusing transitions it disallows. Same-state calls are no-ops.
func (s *service) advance(ctx context.Context, order *models.Order, next enums.OrderStatus, extra map[string]any) error {
	if order.Status == next {
		return nil
	}
	if !order.Status.CanTransitionTo(next) {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, next))
	}
	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	if err := s.repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return err
	}
	order.Status = next
	return nil
}

func (s *service) settleProfit(ctx context.Context, order *models.Order, profitCents int64) error {
	existing, err := s.transfers.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, transfer := range existing {
		if transfer.Status != enums.TransferStatusFailed {
			s.logg.Info(ctx, "active transfer exists, skipping payout")
			return nil
		}
	}

	if _, err := s.payouts.Initiate(ctx, order, profitCents); err != nil {
		if errors.HasCode(err, errors.CodePayoutFailed) {
			// back-office reconciliation concern, not an order failure
			s.logg.Warn(ctx, fmt.Sprintf("payout failed, order proceeds to completion: %v", err))
			return nil
		}
		return err
	}
	return nil
}

func (s *service) completeOrder(ctx context.Context, order *models.Order) error {
	if !order.Status.CanTransitionTo(enums.OrderStatusCompleted) {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order cannot complete from %s", order.Status))
	}
	now := time.Now()
	err := dbpkg.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}); err != nil {
			return err
		}
		if s.emitter != nil {
			return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.OutboxEventOrderCompleted,
				AggregateID: order.ID,
				Data: map[string]any{
					"order_number": order.OrderNumber,
					"profit_cents": deref64(order.ProfitCents),
				},
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusCompleted
	order.CompletedAt = &now
	s.metrics.IncOrderCompleted()
	s.logg.Info(ctx, "order completed")
	return nil
}

// failOrder transitions the order to the absorbing failed state. The
// returned error is nil: a failed order is a handled outcome, not a
// batch abort.
func (s *service) failOrder(ctx context.Context, order *models.Order, cause error) error {
	if order.Status.IsTerminal() {
		return nil
	}
	msg := cause.Error()
	code := errors.CodeInternal
	if typed := errors.As(cause); typed != nil {
		code = typed.Code()
	}

	err := dbpkg.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{
			"status":        enums.OrderStatusFailed,
			"error_message": msg,
		}); err != nil {
			return err
		}
		if s.emitter != nil {
			return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.OutboxEventOrderFailed,
				AggregateID: order.ID,
				Data: map[string]any{
					"order_number": order.OrderNumber,
					"error_code":   code,
					"error":        msg,
				},
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusFailed
	order.ErrorMessage = &msg
	s.metrics.IncOrderFailed(string(code))
	s.logg.Warn(ctx, fmt.Sprintf("order failed: %s", msg))
	return nil
}

// GetOrderStatus returns the order with its supplier orders and
// transfer history.
func (s *service) GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*OrderStatusView, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		itemIDs = append(itemIDs, item.ID)
	}
	supplierOrders, err := s.supplierOrders.ListByOrderItemIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	transfers, err := s.transfers.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderStatusView{
		Order:          order,
		SupplierOrders: supplierOrders,
		Transfers:      transfers,
	}, nil
}

// TrackSupplierOrder proxies the dispatcher's tracking snapshot.
func (s *service) TrackSupplierOrder(ctx context.Context, supplierOrderID uuid.UUID) (*TrackingInfo, error) {
	return s.dispatcher.TrackShipment(ctx, supplierOrderID)
}

// MarkOrderPaid records an operator-confirmed settlement for orders the
// verifier cannot confirm automatically.
func (s *service) MarkOrderPaid(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() {
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("order is already %s", order.Status))
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return errors.New(errors.CodeStateConflict, "order payment is already confirmed")
	}
	if err := s.repo.UpdateOrder(ctx, orderID, map[string]any{
		"payment_status": enums.PaymentStatusPaid,
	}); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order marked paid by operator")
	return nil
}

func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("DF-%s-%s", time.Now().Format("20060102"), id[:6])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func deref64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
