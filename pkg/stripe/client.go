package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/dropflowhq/dropflow-backend/pkg/config"
	pkgerrors "github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api         *stripe.Client
	environment string
	logger      *logger.Logger
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.Stripe, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:         api,
		environment: env,
		logger:      logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// GetPaymentIntent fetches the payment intent backing an order's payment ref.
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	intent, err := c.api.V1PaymentIntents.Retrieve(ctx, intentID, nil)
	if err != nil {
		return nil, c.mapStripeError(err, "get payment intent")
	}
	return intent, nil
}

// CreatePayout initiates a payout on the connected balance.
func (c *Client) CreatePayout(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*stripe.Payout, error) {
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "payout amount must be positive")
	}
	params := &stripe.PayoutCreateParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	payout, err := c.api.V1Payouts.Create(ctx, params)
	if err != nil {
		return nil, c.mapStripeError(err, "create payout")
	}
	return payout, nil
}

// GetPayout fetches a payout by ref for reconciliation.
func (c *Client) GetPayout(ctx context.Context, payoutID string) (*stripe.Payout, error) {
	if strings.TrimSpace(payoutID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	payout, err := c.api.V1Payouts.Retrieve(ctx, payoutID, nil)
	if err != nil {
		return nil, c.mapStripeError(err, "get payout")
	}
	return payout, nil
}

func (c *Client) mapStripeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := pkgerrors.CodeDependency
		switch stripeErr.Type {
		case stripe.ErrorTypeInvalidRequest:
			if stripeErr.HTTPStatusCode == 404 {
				code = pkgerrors.CodeNotFound
			} else {
				code = pkgerrors.CodeValidation
			}
		case stripe.ErrorType("authentication_error"):
			code = pkgerrors.CodeUnauthorized
		case stripe.ErrorTypeCard:
			code = pkgerrors.CodePaymentNotConfirmed
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("stripe %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
