package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"foodcart/internal/domain/model"
	"foodcart/internal/pkg/logging"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	// 4xx from the provider. Retrying will not help and it must not open the breaker.
	errRejectedByProvider = errors.New("rejected by provider")
	// 5xx from the provider
	errProviderUnavailable = errors.New("provider unavailable")
)

type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration

	// attempts per call, refused connections and 5xx only
	MaxAttempts int
	Backoff     time.Duration
}

// RazorpayGateway creates orders through the Razorpay REST API.
type RazorpayGateway struct {
	cfg     RazorpayConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[model.PaymentIntent]
}

func NewRazorpayGateway(cfg RazorpayConfig) *RazorpayGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breaker := gobreaker.NewCircuitBreaker[model.PaymentIntent](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errRejectedByProvider) || errors.Is(err, context.Canceled)
		},
	})

	return &RazorpayGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

type razorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrder struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Notes      map[string]string `json:"notes"`
	CreatedAt  int64             `json:"created_at"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, req IntentRequest) (model.PaymentIntent, error) {
	minor, err := ToMinorUnits(req.Amount)
	if err != nil {
		return model.PaymentIntent{}, err
	}
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   minor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return model.PaymentIntent{}, err
	}

	intent, err := g.breaker.Execute(func() (model.PaymentIntent, error) {
		return g.createWithRetry(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return model.PaymentIntent{}, fmt.Errorf("%w: circuit open", ErrGateway)
		}
		return model.PaymentIntent{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return intent, nil
}

// createWithRetry retries refused connections and 5xx. Any other failure may have
// created the order at the provider and is returned as is.
func (g *RazorpayGateway) createWithRetry(ctx context.Context, body []byte) (model.PaymentIntent, error) {
	log := logging.FromContext(ctx)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.Backoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(g.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (model.PaymentIntent, error) {
		attempt++
		intent, err := g.createOnce(ctx, body)
		if err != nil && !retryable(err) {
			return model.PaymentIntent{}, backoff.Permanent(err)
		}
		return intent, err
	}, bo, func(err error, wait time.Duration) {
		log.Warn("razorpay create order failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})
}

func retryable(err error) bool {
	if errors.Is(err, errProviderUnavailable) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (g *RazorpayGateway) createOnce(ctx context.Context, body []byte) (model.PaymentIntent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return model.PaymentIntent{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return model.PaymentIntent{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.PaymentIntent{}, err
	}

	switch {
	case resp.StatusCode >= 500:
		return model.PaymentIntent{}, fmt.Errorf("%w: status %d", errProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var rerr razorpayError
		_ = json.Unmarshal(raw, &rerr)
		return model.PaymentIntent{}, fmt.Errorf("%w: status %d %s %s",
			errRejectedByProvider, resp.StatusCode, rerr.Error.Code, rerr.Error.Description)
	}

	var order razorpayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return model.PaymentIntent{}, fmt.Errorf("decode razorpay order: %w", err)
	}
	if order.ID == "" {
		return model.PaymentIntent{}, fmt.Errorf("razorpay order without id")
	}
	return order.toIntent(), nil
}

func (o razorpayOrder) toIntent() model.PaymentIntent {
	status := model.IntentStatus(o.Status)
	if status == "" {
		status = model.IntentStatusCreated
	}
	return model.PaymentIntent{
		ID:          o.ID,
		Amount:      fromMinorUnits(o.Amount),
		AmountMinor: o.Amount,
		Currency:    o.Currency,
		Receipt:     o.Receipt,
		Status:      status,
		Notes:       o.Notes,
		CreatedAt:   time.Unix(o.CreatedAt, 0).UTC(),
	}
}
