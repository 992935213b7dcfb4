package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	dbpkg "github.com/dropflowhq/dropflow-backend/pkg/db"
	"github.com/dropflowhq/dropflow-backend/pkg/db/models"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/metrics"
	"github.com/dropflowhq/dropflow-backend/pkg/outbox"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

// TrackingEvent is one step in a supplier order's shipping history.
type TrackingEvent struct {
	Status     enums.SupplierOrderStatus `json:"status"`
	OccurredAt time.Time                 `json:"occurred_at"`
	Note       string                    `json:"note,omitempty"`
}

// TrackingInfo is the idempotent tracking snapshot for a supplier order.
type TrackingInfo struct {
	Reference           string                    `json:"reference"`
	SupplierName        string                    `json:"supplier_name"`
	Status              enums.SupplierOrderStatus `json:"status"`
	EstimatedDeliveryAt time.Time                 `json:"estimated_delivery_at"`
	TrackingNumber      *string                   `json:"tracking_number,omitempty"`
	Events              []TrackingEvent           `json:"events"`
}

// Dispatcher places supplier orders for paid items and answers tracking
// queries.
type Dispatcher interface {
	Dispatch(ctx context.Context, item *models.OrderItem, address types.Address) (*models.SupplierOrder, error)
	TrackShipment(ctx context.Context, supplierOrderID uuid.UUID) (*TrackingInfo, error)
}

type Params struct {
	DB          *gorm.DB
	Repo        *Repository
	Gateway     Gateway
	Outbox      *outbox.Service
	Logger      *logger.Logger
	Metrics     *metrics.PipelineMetrics
	MaxAttempts uint64
	BackoffBase time.Duration
}

type dispatcher struct {
	db          *gorm.DB
	repo        *Repository
	gateway     Gateway
	emitter     *outbox.Service
	logg        *logger.Logger
	metrics     *metrics.PipelineMetrics
	maxAttempts uint64
	backoffBase time.Duration
}

func NewDispatcher(p Params) (Dispatcher, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db is required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 500 * time.Millisecond
	}
	return &dispatcher{
		db:          p.DB,
		repo:        p.Repo,
		gateway:     p.Gateway,
		emitter:     p.Outbox,
		logg:        p.Logger,
		metrics:     p.Metrics,
		maxAttempts: p.MaxAttempts,
		backoffBase: p.BackoffBase,
	}, nil
}

// Dispatch places the item with its supplier and persists the supplier
// order plus the item's back-reference atomically. Items that already
// carry a supplier order are returned as-is, so resumed runs do not
// double-dispatch.
func (d *dispatcher) Dispatch(ctx context.Context, item *models.OrderItem, address types.Address) (*models.SupplierOrder, error) {
	if item == nil {
		return nil, errors.New(errors.CodeValidation, "order item is required")
	}
	if item.SupplierOrderID != nil {
		return d.repo.GetByID(ctx, *item.SupplierOrderID)
	}

	reference := newReference()
	req := PlacementRequest{
		Reference:       reference,
		SupplierName:    item.SupplierName,
		ProductName:     item.ProductName,
		Qty:             item.Qty,
		TotalCents:      item.TotalCents,
		ShippingAddress: address,
	}

	if err := d.placeWithRetry(ctx, req); err != nil {
		return nil, err
	}

	offset := DeliveryOffsetDays(item.SupplierName)
	so := &models.SupplierOrder{
		Reference:           reference,
		SupplierName:        item.SupplierName,
		OrderItemID:         item.ID,
		ShippingAddress:     address,
		TotalCents:          item.TotalCents,
		Status:              enums.SupplierOrderPlaced,
		EstimatedDeliveryAt: time.Now().AddDate(0, 0, offset),
	}

	err := dbpkg.RunInTx(ctx, d.db, func(tx *gorm.DB) error {
		if err := d.repo.WithTx(tx).Insert(ctx, so); err != nil {
			return err
		}
		update := tx.Model(&models.OrderItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"supplier_order_id":  so.ID,
				"fulfillment_status": enums.ItemFulfillmentDispatched,
			})
		if update.Error != nil {
			return dbpkg.Translate(update.Error, "order item not found")
		}
		if d.emitter != nil {
			return d.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.OutboxEventSupplierOrderDispatched,
				AggregateID: so.ID,
				Data: map[string]any{
					"reference":     so.Reference,
					"supplier_name": so.SupplierName,
					"order_item_id": so.OrderItemID.String(),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	item.SupplierOrderID = &so.ID
	item.FulfillmentStatus = enums.ItemFulfillmentDispatched

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"supplier_order": so.Reference,
		"supplier":       so.SupplierName,
	})
	d.logg.Info(logCtx, "supplier order dispatched")
	return so, nil
}

func (d *dispatcher) placeWithRetry(ctx context.Context, req PlacementRequest) error {
	backoff := retry.WithMaxRetries(d.maxAttempts-1, retry.NewExponential(d.backoffBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		ack, err := d.gateway.PlaceOrder(ctx, req)
		if err != nil {
			if attempt > 1 {
				d.metrics.IncDispatchRetry()
			}
			d.logg.Warn(d.logg.WithField(ctx, "supplier_order", req.Reference),
				fmt.Sprintf("supplier placement attempt %d failed: %v", attempt, err))
			return retry.RetryableError(err)
		}
		if !ack.Accepted {
			reason := strings.TrimSpace(ack.RejectedReason)
			if reason == "" {
				reason = "rejected without reason"
			}
			return errors.New(errors.CodeSupplierRejected,
				fmt.Sprintf("supplier %s rejected order: %s", req.SupplierName, reason))
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.HasCode(err, errors.CodeSupplierRejected) {
		return err
	}
	return errors.Wrap(errors.CodeSupplierDispatch, err,
		fmt.Sprintf("supplier %s dispatch failed after %d attempts", req.SupplierName, attempt))
}

// TrackShipment returns the current tracking snapshot. Safe to poll.
func (d *dispatcher) TrackShipment(ctx context.Context, supplierOrderID uuid.UUID) (*TrackingInfo, error) {
	so, err := d.repo.GetByID(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	return buildTrackingInfo(so), nil
}

func buildTrackingInfo(so *models.SupplierOrder) *TrackingInfo {
	events := []TrackingEvent{{
		Status:     enums.SupplierOrderPlaced,
		OccurredAt: so.CreatedAt,
		Note:       fmt.Sprintf("order placed with %s", so.SupplierName),
	}}
	if so.Status != enums.SupplierOrderPlaced {
		events = append(events, TrackingEvent{
			Status:     so.Status,
			OccurredAt: so.UpdatedAt,
		})
	}
	return &TrackingInfo{
		Reference:           so.Reference,
		SupplierName:        so.SupplierName,
		Status:              so.Status,
		EstimatedDeliveryAt: so.EstimatedDeliveryAt,
		TrackingNumber:      so.TrackingNumber,
		Events:              events,
	}
}

func newReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "SO-" + id[:12]
}
