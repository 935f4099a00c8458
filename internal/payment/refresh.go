package payment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"golang.org/x/sync/singleflight"
)

// KeySource yields the current processor secret.
type KeySource interface {
	Key(ctx context.Context) (string, error)
}

// StaticKey always returns the same key.
type StaticKey string

func (k StaticKey) Key(context.Context) (string, error) {
	if k == "" {
		return "", errors.New("no processor key configured")
	}
	return string(k), nil
}

// FileKey re-reads a mounted secret file on every call.
type FileKey string

func (f FileKey) Key(context.Context) (string, error) {
	b, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read processor key: %w", err)
	}
	key := strings.TrimSpace(string(b))
	if key == "" {
		return "", fmt.Errorf("processor key file %s is empty", f)
	}
	return key, nil
}

// Rotator accepts a fresh credential.
type Rotator interface {
	Rotate(key string)
}

// RefreshingProcessor retries a call once after an authentication failure, having
// fetched a fresh key. Concurrent failures share one refresh.
type RefreshingProcessor struct {
	next    Processor
	keys    KeySource
	target  Rotator
	refresh singleflight.Group
}

func NewRefreshingProcessor(next Processor, keys KeySource, target Rotator) *RefreshingProcessor {
	return &RefreshingProcessor{next: next, keys: keys, target: target}
}

func (p *RefreshingProcessor) refreshKey(ctx context.Context) error {
	_, err, shared := p.refresh.Do("key", func() (any, error) {
		key, err := p.keys.Key(ctx)
		if err != nil {
			return nil, err
		}
		p.target.Rotate(key)
		return nil, nil
	})
	logger.Info("payment processor credential refreshed", "shared", shared, "error", err)
	return err
}

func withRefresh[T any](ctx context.Context, p *RefreshingProcessor, op string, call func() (T, error)) (T, error) {
	out, err := call()
	if err == nil || !errors.Is(err, ErrAuthExpired) {
		return out, err
	}
	logger.Warn("payment processor rejected credential, refreshing", "operation", op)
	if rerr := p.refreshKey(ctx); rerr != nil {
		var zero T
		return zero, domain.External(op, fmt.Errorf("credential refresh failed: %w (after %v)", rerr, err))
	}
	return call()
}

func (p *RefreshingProcessor) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	return withRefresh(ctx, p, "CreateAccount", func() (string, error) { return p.next.CreateAccount(ctx, req) })
}

func (p *RefreshingProcessor) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	return withRefresh(ctx, p, "CreateOnboardingLink", func() (string, error) { return p.next.CreateOnboardingLink(ctx, accountID) })
}

func (p *RefreshingProcessor) RetrieveAccount(ctx context.Context, accountID string) (domain.AccountState, error) {
	return withRefresh(ctx, p, "RetrieveAccount", func() (domain.AccountState, error) { return p.next.RetrieveAccount(ctx, accountID) })
}

func (p *RefreshingProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	return withRefresh(ctx, p, "CreatePaymentIntent", func() (*Intent, error) { return p.next.CreatePaymentIntent(ctx, req) })
}

func (p *RefreshingProcessor) RetrievePaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	return withRefresh(ctx, p, "RetrievePaymentIntent", func() (*Intent, error) { return p.next.RetrievePaymentIntent(ctx, intentID) })
}

func (p *RefreshingProcessor) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	return withRefresh(ctx, p, "RetrieveSession", func() (*Session, error) { return p.next.RetrieveSession(ctx, sessionID) })
}

func (p *RefreshingProcessor) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	return withRefresh(ctx, p, "CreateRefund", func() (*Refund, error) { return p.next.CreateRefund(ctx, req) })
}

func (p *RefreshingProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	return withRefresh(ctx, p, "CreateTransfer", func() (*Transfer, error) { return p.next.CreateTransfer(ctx, req) })
}
