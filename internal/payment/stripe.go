package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey      string
	ConnectCountry string
	RefreshURL     string
	ReturnURL      string
}

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct {
	mu  sync.RWMutex
	api *client.API
	cfg StripeConfig
}

func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	p := &StripeProcessor{cfg: cfg}
	p.Rotate(cfg.SecretKey)
	return p
}

// Rotate swaps the secret key used for subsequent calls.
func (p *StripeProcessor) Rotate(key string) {
	api := &client.API{}
	api.Init(key, nil)

	p.mu.Lock()
	p.api = api
	p.mu.Unlock()
}

func (p *StripeProcessor) client() *client.API {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.api
}

func (p *StripeProcessor) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	country := req.Country
	if country == "" {
		country = p.cfg.ConnectCountry
	}
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.AddMetadata("owner_id", req.OwnerID)
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "accounts.create", "ownerID", req.OwnerID)
	acct, err := p.client().Accounts.New(params)
	logger.ExternalServiceResult("stripe", "accounts.create", err)
	if err != nil {
		return "", mapStripeError(err)
	}
	return acct.ID, nil
}

func (p *StripeProcessor) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(p.cfg.RefreshURL),
		ReturnURL:  stripe.String(p.cfg.ReturnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "account_links.create", "accountID", accountID)
	link, err := p.client().AccountLinks.New(params)
	logger.ExternalServiceResult("stripe", "account_links.create", err)
	if err != nil {
		return "", mapStripeError(err)
	}
	return link.URL, nil
}

func (p *StripeProcessor) RetrieveAccount(ctx context.Context, accountID string) (domain.AccountState, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "accounts.retrieve", "accountID", accountID)
	acct, err := p.client().Accounts.GetByID(accountID, params)
	logger.ExternalServiceResult("stripe", "accounts.retrieve", err)
	if err != nil {
		return domain.AccountState{}, mapStripeError(err)
	}
	state := domain.AccountState{
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
	if acct.Requirements != nil {
		state.CurrentlyDue = acct.Requirements.CurrentlyDue
		state.DisabledReason = string(acct.Requirements.DisabledReason)
	}
	return state, nil
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "payment_intents.create", "amount", req.Amount, "currency", req.Currency)
	pi, err := p.client().PaymentIntents.New(params)
	logger.ExternalServiceResult("stripe", "payment_intents.create", err)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func (p *StripeProcessor) RetrievePaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "payment_intents.retrieve", "intentID", intentID)
	pi, err := p.client().PaymentIntents.Get(intentID, params)
	logger.ExternalServiceResult("stripe", "payment_intents.retrieve", err)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}

func (p *StripeProcessor) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "checkout.sessions.retrieve", "sessionID", sessionID)
	s, err := p.client().CheckoutSessions.Get(sessionID, params)
	logger.ExternalServiceResult("stripe", "checkout.sessions.retrieve", err)
	if err != nil {
		return nil, mapStripeError(err)
	}
	out := &Session{ID: s.ID, PaymentStatus: string(s.PaymentStatus), Metadata: s.Metadata}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func (p *StripeProcessor) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentIntentID),
		Amount:        stripe.Int64(req.Amount),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "refunds.create", "intentID", req.PaymentIntentID, "amount", req.Amount)
	r, err := p.client().Refunds.New(params)
	logger.ExternalServiceResult("stripe", "refunds.create", err)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Refund{ID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

func (p *StripeProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.Destination),
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripe.String(req.TransferGroup)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.Context = ctx

	logger.ExternalServiceCall("stripe", "transfers.create", "destination", req.Destination, "amount", req.Amount)
	t, err := p.client().Transfers.New(params)
	logger.ExternalServiceResult("stripe", "transfers.create", err)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Transfer{ID: t.ID, Amount: t.Amount}, nil
}

// mapStripeError translates Stripe API errors to package sentinels.
func mapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthExpired, se.Msg)
	case se.Code == stripe.ErrorCodeResourceMissing && se.Param == "account",
		se.Code == stripe.ErrorCodeAccountInvalid:
		return fmt.Errorf("%w: %s", ErrNoSuchAccount, se.Msg)
	}
	return err
}
