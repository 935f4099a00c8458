package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"

	"github.com/google/uuid"
)

// MockProcessor is an in-memory Processor for local runs (stripe.mode: mock) and tests.
// Calls sharing an idempotency key return the first result.
type MockProcessor struct {
	mu        sync.Mutex
	accounts  map[string]domain.AccountState
	sessions  map[string]*Session
	intents   map[string]*Intent
	byIntent  map[string]*Intent
	refunds   map[string]*Refund
	transfers map[string]*Transfer
	failures  map[string]error
	calls     []string
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{
		accounts:  make(map[string]domain.AccountState),
		sessions:  make(map[string]*Session),
		intents:   make(map[string]*Intent),
		byIntent:  make(map[string]*Intent),
		refunds:   make(map[string]*Refund),
		transfers: make(map[string]*Transfer),
		failures:  make(map[string]error),
	}
}

func mockID(prefix string) string {
	return prefix + "_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// FailNext makes the next call of op return err.
func (m *MockProcessor) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// SetAccountState sets what RetrieveAccount reports for accountID.
func (m *MockProcessor) SetAccountState(accountID string, s domain.AccountState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = s
}

// AddSession registers a checkout session that resolves to intentID.
func (m *MockProcessor) AddSession(sessionID, intentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = &Session{ID: sessionID, PaymentIntentID: intentID, PaymentStatus: "paid"}
}

// SetIntent registers or overwrites what RetrievePaymentIntent reports for intentID.
func (m *MockProcessor) SetIntent(intentID string, amount int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.byIntent[intentID]
	if !ok {
		in = &Intent{ID: intentID, ClientSecret: intentID + "_secret"}
		m.byIntent[intentID] = in
	}
	in.Amount, in.Status = amount, status
}

// Calls returns the operations performed so far, in order.
func (m *MockProcessor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// begin records op and returns an injected failure, if any. Callers hold m.mu.
func (m *MockProcessor) begin(op string) error {
	m.calls = append(m.calls, op)
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

func (m *MockProcessor) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateAccount"); err != nil {
		return "", err
	}
	id := mockID("acct")
	m.accounts[id] = domain.AccountState{}
	logger.Debug("mock processor created account", "accountID", id, "ownerID", req.OwnerID)
	return id, nil
}

func (m *MockProcessor) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateOnboardingLink"); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://connect.mock.local/setup/%s", accountID), nil
}

func (m *MockProcessor) RetrieveAccount(ctx context.Context, accountID string) (domain.AccountState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("RetrieveAccount"); err != nil {
		return domain.AccountState{}, err
	}
	s, ok := m.accounts[accountID]
	if !ok {
		return domain.AccountState{}, fmt.Errorf("%w: %s", ErrNoSuchAccount, accountID)
	}
	return s, nil
}

func (m *MockProcessor) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreatePaymentIntent"); err != nil {
		return nil, err
	}
	if in, ok := m.intents[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return in, nil
	}
	id := mockID("pi")
	in := &Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method", Amount: req.Amount, Currency: req.Currency}
	if req.IdempotencyKey != "" {
		m.intents[req.IdempotencyKey] = in
	}
	m.byIntent[id] = in
	return in, nil
}

func (m *MockProcessor) RetrievePaymentIntent(ctx context.Context, intentID string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("RetrievePaymentIntent"); err != nil {
		return nil, err
	}
	in, ok := m.byIntent[intentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", intentID)
	}
	out := *in
	return &out, nil
}

func (m *MockProcessor) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("RetrieveSession"); err != nil {
		return nil, err
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", sessionID)
	}
	out := *s
	return &out, nil
}

func (m *MockProcessor) CreateRefund(ctx context.Context, req RefundRequest) (*Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateRefund"); err != nil {
		return nil, err
	}
	if r, ok := m.refunds[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return r, nil
	}
	r := &Refund{ID: mockID("re"), Amount: req.Amount, Status: "succeeded"}
	if req.IdempotencyKey != "" {
		m.refunds[req.IdempotencyKey] = r
	}
	return r, nil
}

func (m *MockProcessor) CreateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateTransfer"); err != nil {
		return nil, err
	}
	if t, ok := m.transfers[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return t, nil
	}
	t := &Transfer{ID: mockID("tr"), Amount: req.Amount}
	if req.IdempotencyKey != "" {
		m.transfers[req.IdempotencyKey] = t
	}
	return t, nil
}
