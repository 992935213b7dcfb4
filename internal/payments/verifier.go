package payments

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	"github.com/stripe/stripe-go/v84"

	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

const squarePaymentCompleted = "COMPLETED"

// StripeGateway is the slice of the Stripe client the verifier needs.
type StripeGateway interface {
	GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error)
}

// SquareGateway is the slice of the Square client the verifier needs.
type SquareGateway interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// Verifier confirms that an order's payment settled at its processor.
// It never mutates settlement state.
type Verifier interface {
	Verify(ctx context.Context, method enums.PaymentMethod, paymentRef string) error
}

type Params struct {
	Stripe StripeGateway
	Square SquareGateway
	Logger *logger.Logger
}

type verifier struct {
	stripe StripeGateway
	square SquareGateway
	logg   *logger.Logger
}

func NewVerifier(p Params) (Verifier, error) {
	if p.Stripe == nil {
		return nil, fmt.Errorf("stripe gateway is required")
	}
	if p.Square == nil {
		return nil, fmt.Errorf("square gateway is required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &verifier{stripe: p.Stripe, square: p.Square, logg: p.Logger}, nil
}

func (v *verifier) Verify(ctx context.Context, method enums.PaymentMethod, paymentRef string) error {
	if strings.TrimSpace(paymentRef) == "" {
		return errors.New(errors.CodePaymentNotConfirmed, "payment reference is missing")
	}

	switch method {
	case enums.PaymentMethodStripe:
		return v.verifyStripe(ctx, paymentRef)
	case enums.PaymentMethodSquare:
		return v.verifySquare(ctx, paymentRef)
	default:
		// manual settles via the operator mark-paid flow, never here
		return errors.New(errors.CodeUnsupportedPaymentMethod,
			fmt.Sprintf("payment method %q cannot be verified automatically", method))
	}
}

func (v *verifier) verifyStripe(ctx context.Context, intentID string) error {
	intent, err := v.stripe.GetPaymentIntent(ctx, intentID)
	if err != nil {
		// transient processor outages must stay retryable, not fail the order
		if errors.HasCode(err, errors.CodeDependency) {
			return err
		}
		return errors.Wrap(errors.CodePaymentNotConfirmed, err, "fetch stripe payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return errors.New(errors.CodePaymentNotConfirmed,
			fmt.Sprintf("stripe payment intent status is %q", intent.Status)).
			WithDetails(map[string]string{"processor_status": string(intent.Status)})
	}
	v.logg.Info(v.logg.WithField(ctx, "payment_ref", intentID), "stripe payment confirmed")
	return nil
}

func (v *verifier) verifySquare(ctx context.Context, paymentID string) error {
	payment, err := v.square.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.HasCode(err, errors.CodeDependency) {
			return err
		}
		return errors.Wrap(errors.CodePaymentNotConfirmed, err, "fetch square payment")
	}
	status := ""
	if payment != nil {
		if s := payment.GetStatus(); s != nil {
			status = *s
		}
	}
	if status != squarePaymentCompleted {
		return errors.New(errors.CodePaymentNotConfirmed,
			fmt.Sprintf("square payment status is %q", status)).
			WithDetails(map[string]string{"processor_status": status})
	}
	v.logg.Info(v.logg.WithField(ctx, "payment_ref", paymentID), "square payment confirmed")
	return nil
}
