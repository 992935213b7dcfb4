package cron

import (
	"context"
	"fmt"

	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

// FulfillmentJobParams configure the order processing job.
type FulfillmentJobParams struct {
	Logger    *logger.Logger
	Processor fulfillmentProcessor
}

type fulfillmentProcessor interface {
	ProcessPendingOrders(ctx context.Context) error
}

// NewFulfillmentJob builds the cron job that drives pending orders
// through the pipeline.
func NewFulfillmentJob(params FulfillmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("fulfillment processor required")
	}
	return &fulfillmentJob{
		logg:      params.Logger,
		processor: params.Processor,
	}, nil
}

type fulfillmentJob struct {
	logg      *logger.Logger
	processor fulfillmentProcessor
}

func (j *fulfillmentJob) Name() string { return "order-fulfillment" }

func (j *fulfillmentJob) Run(ctx context.Context) error {
	if err := j.processor.ProcessPendingOrders(ctx); err != nil {
		return fmt.Errorf("process pending orders: %w", err)
	}
	return nil
}
