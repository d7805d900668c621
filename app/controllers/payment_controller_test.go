package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/internal/pkg/payments"
)

type fakePaymentRepo struct {
	mu        sync.Mutex
	purchases map[string]*models.Purchase
	ledger    map[string]float64
	events    []*models.PaymentWebhookEvent
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		purchases: make(map[string]*models.Purchase),
		ledger:    make(map[string]float64),
	}
}

func (f *fakePaymentRepo) UpsertPendingPurchase(_ context.Context, p *models.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchases[p.Reference] = p
	return nil
}

func (f *fakePaymentRepo) GetPurchase(_ context.Context, reference string) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[reference]
	if !ok {
		return nil, payments.ErrPurchaseNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) GetLedger(_ context.Context, personID string) (*models.BalanceLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.ledger[personID]
	if !ok {
		return nil, payments.ErrLedgerTargetNotFound
	}
	return &models.BalanceLedger{PersonID: personID, DepositedBalance: balance}, nil
}

func (f *fakePaymentRepo) RecordWebhookEvent(_ context.Context, ev *models.PaymentWebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePaymentRepo) Reconcile(_ context.Context, key, outcome, rawPayload string) (*payments.ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var p *models.Purchase
	for _, candidate := range f.purchases {
		if candidate.Reference == key || candidate.ClientTransactionID == key {
			p = candidate
			break
		}
	}
	if p == nil {
		return nil, payments.ErrPurchaseNotFound
	}

	p.Status = outcome
	p.RawPayload = rawPayload
	res := &payments.ReconcileResult{Reference: p.Reference, Status: outcome}

	if outcome != models.PurchaseStatusApproved || p.IsCredited() {
		return res, nil
	}
	balance, ok := f.ledger[p.Beneficiary()]
	if !ok {
		return res, payments.ErrLedgerTargetNotFound
	}
	f.ledger[p.Beneficiary()] = balance + p.Amount
	now := p.CreatedAt
	p.CreditedAt = &now
	res.Credited = true
	res.NewBalance = balance + p.Amount
	return res, nil
}

type fakePaymentGateway struct {
	url string
	err error
}

func (f *fakePaymentGateway) Prepare(_ context.Context, _ payments.PrepareRequest) (*payments.PrepareResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payments.PrepareResponse{PayWithPayPhone: f.url}, nil
}

func newPaymentTestApp(t *testing.T, repo *fakePaymentRepo, gw payments.Gateway) *fiber.App {
	t.Helper()

	engine := html.New("../../views", ".html")
	app := fiber.New(fiber.Config{Views: engine})

	Initialize(payments.NewService(repo, gw), nil, nil)

	app.All("/payments/payphone/order", HandlePaymentOrder)
	app.Get("/payments/payphone/order/:reference", HandlePaymentStatus)
	app.All("/payments/payphone/hook", HandlePaymentWebhook)
	app.Get("/payments/payphone/cancel", HandlePaymentCancel)
	return app
}

func seedPurchase(repo *fakePaymentRepo, reference, userID string, amount, balance float64) {
	repo.purchases[reference] = &models.Purchase{
		Reference:           reference,
		ClientTransactionID: reference,
		UserID:              userID,
		ProductID:           "prod-1",
		Amount:              amount,
		Status:              models.PurchaseStatusPending,
	}
	repo.ledger[userID] = balance
}

func TestPaymentWebhookRejectsNonPost(t *testing.T) {
	app := newPaymentTestApp(t, newFakePaymentRepo(), &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodGet, "/payments/payphone/hook", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPaymentWebhookMissingKeyReturns400(t *testing.T) {
	app := newPaymentTestApp(t, newFakePaymentRepo(), &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/hook", strings.NewReader(`{"transactionStatus":"Approved"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPaymentWebhookUnknownKeyReturns404(t *testing.T) {
	app := newPaymentTestApp(t, newFakePaymentRepo(), &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/hook", strings.NewReader(`{"clientTransactionId":"nope","transactionStatus":"Approved"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPaymentWebhookApprovedReturnsSuccessJSON(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPurchase(repo, "ref-1", "p1", 25, 100)
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/hook", strings.NewReader(`{"clientTransactionId":"ref-1","transactionStatus":"Approved"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["credited"])
	assert.Equal(t, float64(125), repo.ledger["p1"])
}

func TestPaymentWebhookApprovedRendersHTMLForBrowsers(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPurchase(repo, "ref-2", "p2", 10, 0)
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{url: "https://pay.example/x"})

	form := "clientTransactionId=ref-2&transactionStatus=Approved"
	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/hook", strings.NewReader(form))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMETextHTML)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "success://payphone")
}

func TestPaymentOrderValidationFailure(t *testing.T) {
	app := newPaymentTestApp(t, newFakePaymentRepo(), &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/order", strings.NewReader(`{"userId":"p1","productId":"prod-1","amount":-5}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPaymentOrderRedirectsToGateway(t *testing.T) {
	repo := newFakePaymentRepo()
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{url: "https://pay.example/checkout/42"})

	form := "userId=p1&productId=prod-1&amount=25.50"
	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/order", strings.NewReader(form))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://pay.example/checkout/42", resp.Header.Get(fiber.HeaderLocation))

	assert.Len(t, repo.purchases, 1)
}

func TestPaymentOrderGatewayFailureReturns500(t *testing.T) {
	repo := newFakePaymentRepo()
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{err: payments.ErrGatewayUnavailable})

	req := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/order", strings.NewReader(`{"userId":"p1","productId":"prod-1","amount":10}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	// No dangling purchase after a gateway failure.
	assert.Empty(t, repo.purchases)
}

func TestPaymentStatusReturnsPurchaseAndBalance(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPurchase(repo, "ref-9", "p9", 25, 100)
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{url: "https://pay.example/x"})

	hook := httptest.NewRequest(fiber.MethodPost, "/payments/payphone/hook", strings.NewReader(`{"clientTransactionId":"ref-9","transactionStatus":"Approved"}`))
	hook.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	_, err := app.Test(hook)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/payments/payphone/order/ref-9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ref-9", body["reference"])
	assert.Equal(t, models.PurchaseStatusApproved, body["status"])
	assert.Equal(t, true, body["credited"])
	assert.Equal(t, float64(125), body["balance"])
}

func TestPaymentStatusUnknownReferenceReturns404(t *testing.T) {
	app := newPaymentTestApp(t, newFakePaymentRepo(), &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodGet, "/payments/payphone/order/nope", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPaymentCancelIsStateless(t *testing.T) {
	repo := newFakePaymentRepo()
	seedPurchase(repo, "ref-3", "p3", 5, 50)
	app := newPaymentTestApp(t, repo, &fakePaymentGateway{url: "https://pay.example/x"})

	req := httptest.NewRequest(fiber.MethodGet, "/payments/payphone/cancel", nil)
	req.Header.Set(fiber.HeaderAccept, fiber.MIMETextHTML)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "cancel://payphone")

	// Stores untouched.
	assert.Equal(t, models.PurchaseStatusPending, repo.purchases["ref-3"].Status)
	assert.Equal(t, float64(50), repo.ledger["p3"])
}
